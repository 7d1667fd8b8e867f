// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package synth

import (
	"github.com/dave/dst"
)

// attemptMethods is the method set of *retry.R. The body of a retried test
// sees its test parameter as a *retry.R, so any other method does not exist.
var attemptMethods = map[string]bool{
	"Attr":     true,
	"Chdir":    true,
	"Cleanup":  true,
	"Context":  true,
	"Error":    true,
	"Errorf":   true,
	"Fail":     true,
	"FailNow":  true,
	"Failed":   true,
	"Fatal":    true,
	"Fatalf":   true,
	"Helper":   true,
	"Log":      true,
	"Logf":     true,
	"Name":     true,
	"Output":   true,
	"Parallel": true,
	"Setenv":   true,
	"Skip":     true,
	"SkipNow":  true,
	"Skipf":    true,
	"Skipped":  true,
	"TB":       true,
	"TempDir":  true,
}

// checkBody rejects uses of the test parameter t that would not compile once
// t is a *retry.R: a *testing.T method such as Run, or an argument to a
// function of the same file declared to take a *testing.T. Uses the file
// alone cannot resolve, such as calls into other packages, are not checked.
func checkBody(decl Declaration, t string) error {
	if t == "" || t == "_" {
		return nil
	}
	var err error
	inspect := func(n dst.Node) bool {
		if err != nil {
			return false
		}
		switch n := n.(type) {
		case *dst.FuncLit:
			// A literal declaring its own t shadows the test parameter.
			for _, p := range flatten(n.Type.Params) {
				if p.name != nil && p.name.Name == t {
					return false
				}
			}
		case *dst.SelectorExpr:
			if isIdent(n.X, t) && !attemptMethods[n.Sel.Name] {
				err = decl.errorf("%s calls %s.%s, which is not available to a retried test; a retried test can only use the methods of testing.TB",
					decl.Name, t, n.Sel.Name)
			}
		case *dst.CallExpr:
			fun, ok := n.Fun.(*dst.Ident)
			if !ok {
				break
			}
			typ, ok := decl.Funcs[fun.Name]
			if !ok {
				break
			}
			params := flatten(typ.Params)
			for i, arg := range n.Args {
				if i < len(params) && isIdent(arg, t) && isStarTestingT(params[i].typ, decl.Names) {
					err = decl.errorf("%s passes %s to %s, which takes a *%s.T; change %s to take a %s.TB to use it from a retried test",
						decl.Name, t, fun.Name, decl.Names.Testing, fun.Name, decl.Names.Testing)
				}
			}
		}
		return err == nil
	}
	dst.Inspect(decl.Func.Body, inspect)
	return err
}

func isIdent(e dst.Expr, name string) bool {
	id, ok := e.(*dst.Ident)
	return ok && id.Name == name
}

func isStarTestingT(e dst.Expr, names Names) bool {
	star, ok := e.(*dst.StarExpr)
	return ok && isSelector(star.X, names.Testing, "T")
}

// FileFuncs returns the parameters of the top level functions of f, by name.
func FileFuncs(f *dst.File) map[string]*dst.FuncType {
	funcs := make(map[string]*dst.FuncType)
	for _, d := range f.Decls {
		if fd, ok := d.(*dst.FuncDecl); ok && fd.Recv == nil {
			funcs[fd.Name.Name] = fd.Type
		}
	}
	return funcs
}
