// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package synth

import (
	"github.com/dave/dst"

	"github.com/hashicorp/flakytest/internal/directive"
)

// expandSync retries the body on the test goroutine through retry.Catch.
func expandSync(cfg directive.Config, decl Declaration) *dst.FuncDecl {
	p := newPlan(cfg, decl)
	attempt := call(sel(p.names.Retry, "Catch"), dst.NewIdent(p.t), dst.NewIdent(p.closure))
	body := block(
		p.bindClosure(decl),
		p.expect(decl.Expect, p.loop(attempt)),
	)
	return p.decl(decl, body)
}
