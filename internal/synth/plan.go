// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package synth

import (
	"go/token"

	"github.com/dave/dst"

	"github.com/hashicorp/flakytest/internal/directive"
)

// plan holds the identifiers of one expansion.
type plan struct {
	names    Names
	attempts int

	// t and ctx name the parameters of the wrapper.
	t, ctx string

	// closure binds the original body.
	closure string

	// i and r are the loop counter and the attempt result.
	i, r string
}

func newPlan(cfg directive.Config, decl Declaration) plan {
	p := plan{names: decl.Names, attempts: cfg.Attempts}

	pkgs := map[string]bool{
		p.names.Testing: true,
		p.names.Context: true,
		p.names.Retry:   true,
		p.names.Async:   true,
	}
	params := flatten(decl.Func.Type.Params)
	p.t = paramName(params[len(params)-1], "t")
	if pkgs[p.t] {
		p.t = "t"
	}
	p.ctx = "ctx"
	if decl.Async {
		p.ctx = paramName(params[0], "ctx")
		if pkgs[p.ctx] || p.ctx == p.t {
			p.ctx = "ctx"
		}
	}

	body := usedNames(decl.Func)
	for name := range pkgs {
		body[name] = true
	}
	body[p.t] = true
	body[p.ctx] = true
	p.closure = fresh("flaky"+decl.Name, body)

	outer := map[string]bool{p.t: true, p.ctx: true, p.closure: true}
	for name := range pkgs {
		outer[name] = true
	}
	p.i = fresh("i", outer)
	p.r = fresh("r", outer)
	return p
}

func (p plan) testingT() dst.Expr {
	return &dst.StarExpr{X: sel(p.names.Testing, "T")}
}

func (p plan) retryT() dst.Expr {
	return sel(p.names.Retry, "T")
}

func (p plan) retryR() dst.Expr {
	return &dst.StarExpr{X: sel(p.names.Retry, "R")}
}

// bindClosure moves the original body into a function literal assigned to
// the closure name, retyping its test parameter to *retry.R.
func (p plan) bindClosure(decl Declaration) dst.Stmt {
	var fields []*dst.Field
	for _, f := range decl.Func.Type.Params.List {
		typ := f.Type
		if isTestingT(typ, p.names) {
			typ = p.retryR()
		}
		fields = append(fields, &dst.Field{Names: f.Names, Type: typ})
	}
	lit := &dst.FuncLit{
		Type: &dst.FuncType{Func: true, Params: &dst.FieldList{List: fields}},
		Body: decl.Func.Body,
	}
	return &dst.AssignStmt{
		Lhs: []dst.Expr{dst.NewIdent(p.closure)},
		Tok: token.DEFINE,
		Rhs: []dst.Expr{lit},
	}
}

// loop builds
//
//	for i := 0; i < N; i++ {
//		t.Logf("flakytest retry %d", i)
//		r := <attempt>
//		if r.OK() {
//			return
//		}
//		if i == N-1 {
//			r.Resume(t)
//		}
//	}
func (p plan) loop(attempt dst.Expr) dst.Stmt {
	return &dst.ForStmt{
		Init: &dst.AssignStmt{
			Lhs: []dst.Expr{dst.NewIdent(p.i)},
			Tok: token.DEFINE,
			Rhs: []dst.Expr{intLit(0)},
		},
		Cond: &dst.BinaryExpr{X: dst.NewIdent(p.i), Op: token.LSS, Y: intLit(p.attempts)},
		Post: &dst.IncDecStmt{X: dst.NewIdent(p.i), Tok: token.INC},
		Body: block(
			&dst.ExprStmt{X: call(sel(p.t, "Logf"), strLit("flakytest retry %d"), dst.NewIdent(p.i))},
			&dst.AssignStmt{
				Lhs: []dst.Expr{dst.NewIdent(p.r)},
				Tok: token.DEFINE,
				Rhs: []dst.Expr{attempt},
			},
			&dst.IfStmt{
				Cond: call(sel(p.r, "OK")),
				Body: block(&dst.ReturnStmt{}),
			},
			&dst.IfStmt{
				Cond: &dst.BinaryExpr{
					X:  dst.NewIdent(p.i),
					Op: token.EQL,
					Y:  &dst.BinaryExpr{X: intLit(p.attempts), Op: token.SUB, Y: intLit(1)},
				},
				Body: block(&dst.ExprStmt{X: call(sel(p.r, "Resume"), dst.NewIdent(p.t))}),
			},
		),
	}
}

// expect wraps the loop in retry.ShouldFail when the test is expected to
// fail.
func (p plan) expect(exp *directive.Expectation, loop dst.Stmt) dst.Stmt {
	if exp == nil {
		return loop
	}
	scope := &dst.FuncLit{
		Type: &dst.FuncType{Func: true, Params: &dst.FieldList{List: []*dst.Field{field(p.t, p.retryR())}}},
		Body: block(loop),
	}
	return &dst.ExprStmt{X: call(sel(p.names.Retry, "ShouldFail"), dst.NewIdent(p.t), strLit(exp.Substring), scope)}
}

// decl builds the wrapper carrying the original name and markers.
func (p plan) decl(decl Declaration, body *dst.BlockStmt) *dst.FuncDecl {
	out := &dst.FuncDecl{
		Name: dst.NewIdent(decl.Name),
		Type: &dst.FuncType{
			Func:   true,
			Params: &dst.FieldList{List: []*dst.Field{field(p.t, p.testingT())}},
		},
		Body: body,
	}
	out.Decs.Before = decl.Func.Decs.Before
	out.Decs.After = decl.Func.Decs.After
	out.Decs.Start = dst.Decorations(append([]string(nil), decl.Markers...))
	out.Decs.End = decl.Func.Decs.End
	return out
}
