// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package synth

import (
	"fmt"
	"go/token"
	"path/filepath"
	"strconv"

	"github.com/dave/dst"

	"github.com/hashicorp/flakytest/internal/directive"
)

// diagnosticLead is the text preceding the message literal on the line of a
// diagnostic declaration.
const diagnosticLead = "var _ int = "

// Diagnostic returns a declaration that fails to type check with err's
// message, reported at err's position:
//
//	//line widget_test.go:12:3
//	var _ int = "flakytest: ..."
//
// The //line directive also moves every following line, so diagnostics belong
// at the end of the file.
func Diagnostic(err *directive.ConfigError) *dst.GenDecl {
	decl := &dst.GenDecl{
		Tok: token.VAR,
		Specs: []dst.Spec{
			&dst.ValueSpec{
				Names:  []*dst.Ident{dst.NewIdent("_")},
				Type:   dst.NewIdent("int"),
				Values: []dst.Expr{&dst.BasicLit{Kind: token.STRING, Value: strconv.Quote("flakytest: " + err.Message())}},
			},
		},
	}
	decl.Decs.Before = dst.EmptyLine
	if err.Pos.IsValid() {
		// Shift the line so that the string literal, the expression the
		// type checker reports, lands on the offending column.
		col := err.Pos.Column - len(diagnosticLead)
		if col < 1 {
			col = 1
		}
		name := err.Pos.Filename
		if name != "" {
			name = filepath.Base(name)
		}
		decl.Decs.Start.Append(fmt.Sprintf("//line %s:%d:%d", name, err.Pos.Line, col))
	}
	return decl
}
