// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package source

import (
	"fmt"
	"go/ast"
	"go/build/constraint"

	"github.com/dave/dst"
)

type buildLine struct {
	old, new string
}

// outputConstraint finds the //go:build line of the source file and derives
// the line of the output: the term requiring tag is negated, the rest of
// the expression is kept.
func outputConstraint(af *ast.File, tag string) (buildLine, error) {
	for _, cg := range af.Comments {
		if cg.Pos() > af.Package {
			break
		}
		for _, c := range cg.List {
			if !constraint.IsGoBuild(c.Text) {
				continue
			}
			expr, err := constraint.Parse(c.Text)
			if err != nil {
				return buildLine{}, fmt.Errorf("invalid build constraint %q: %w", c.Text, err)
			}
			negated, ok := negateTag(expr, tag)
			if !ok {
				return buildLine{}, fmt.Errorf("build constraint %q does not require tag %q: %w", c.Text, tag, ErrMissingConstraint)
			}
			return buildLine{old: c.Text, new: "//go:build " + negated.String()}, nil
		}
	}
	return buildLine{}, fmt.Errorf("no //go:build %s line: %w", tag, ErrMissingConstraint)
}

// negateTag negates tag where the top level conjunction of x requires it.
func negateTag(x constraint.Expr, tag string) (constraint.Expr, bool) {
	switch x := x.(type) {
	case *constraint.TagExpr:
		if x.Tag == tag {
			return &constraint.NotExpr{X: x}, true
		}
	case *constraint.AndExpr:
		if l, ok := negateTag(x.X, tag); ok {
			return &constraint.AndExpr{X: l, Y: x.Y}, true
		}
		if r, ok := negateTag(x.Y, tag); ok {
			return &constraint.AndExpr{X: x.X, Y: r}, true
		}
	}
	return x, false
}

// apply replaces the build line in the file header, dropping legacy
// plus-build lines, and reports whether the build line was found.
func (b buildLine) apply(decs *dst.Decorations) bool {
	found := false
	var out []string
	for _, line := range decs.All() {
		switch {
		case line == b.old:
			out = append(out, b.new)
			found = true
		case constraint.IsPlusBuild(line):
		default:
			out = append(out, line)
		}
	}
	decs.Replace(out...)
	return found
}
