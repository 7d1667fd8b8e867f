// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build !flakytest_noasync

package synth

import (
	"go/parser"
	"go/token"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"

	"github.com/hashicorp/flakytest/internal/directive"
)

const asyncSupported = true

// expandAsync hands the retry loop to async.Run and runs each attempt through
// async.Await. Options of the directive are passed to async.Run verbatim.
func expandAsync(cfg directive.Config, decl Declaration) (*dst.FuncDecl, error) {
	opts, err := asyncOptions(cfg, decl)
	if err != nil {
		return nil, err
	}

	p := newPlan(cfg, decl)
	attempt := call(sel(p.names.Async, "Await"), dst.NewIdent(p.ctx), dst.NewIdent(p.t), dst.NewIdent(p.closure))
	entry := &dst.FuncLit{
		Type: &dst.FuncType{
			Func: true,
			Params: &dst.FieldList{List: []*dst.Field{
				field(p.ctx, sel(p.names.Context, "Context")),
				field(p.t, p.retryT()),
			}},
		},
		Body: block(
			p.bindClosure(decl),
			p.expect(decl.Expect, p.loop(attempt)),
		),
	}

	args := append([]dst.Expr{dst.NewIdent(p.t), entry}, opts...)
	body := block(&dst.ExprStmt{X: call(sel(p.names.Async, "Run"), args...)})
	return p.decl(decl, body), nil
}

func asyncOptions(cfg directive.Config, decl Declaration) ([]dst.Expr, error) {
	var out []dst.Expr
	for _, opt := range cfg.AsyncOptions {
		fset := token.NewFileSet()
		expr, err := parser.ParseExprFrom(fset, "", opt, 0)
		if err != nil {
			return nil, decl.errorf("invalid async option `%s`: %v", opt, err)
		}
		n, err := decorator.NewDecorator(fset).DecorateNode(expr)
		if err != nil {
			return nil, decl.errorf("invalid async option `%s`: %v", opt, err)
		}
		out = append(out, n.(dst.Expr))
	}
	return out, nil
}
