// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package synth turns an annotated test function into its retrying wrapper.
package synth

import (
	"fmt"
	"go/token"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/dave/dst"

	"github.com/hashicorp/flakytest/internal/directive"
)

const (
	// RetryPath is the import path of the runtime called by generated code.
	RetryPath = "github.com/hashicorp/flakytest/sdk/testutil/retry"

	// AsyncPath is the import path of the async entry point.
	AsyncPath = "github.com/hashicorp/flakytest/sdk/testutil/retry/async"
)

// Features reports the execution models this build can generate.
func Features() directive.Features {
	return directive.Features{Async: asyncSupported}
}

// Names are the identifiers under which a file refers to the packages used by
// generated code.
type Names struct {
	Testing string
	Context string
	Retry   string
	Async   string
}

// DefaultNames assumes every package is imported under its own name.
func DefaultNames() Names {
	return Names{
		Testing: "testing",
		Context: "context",
		Retry:   "retry",
		Async:   "async",
	}
}

// Declaration is an annotated test function.
type Declaration struct {
	Name string

	// Markers are the doc comment lines other than the directive, verbatim
	// and in order.
	Markers []string

	Func *dst.FuncDecl

	// Async is set when the function takes a context.Context before the
	// *testing.T.
	Async bool

	Expect *directive.Expectation

	// Pos locates the directive, for errors about the declaration itself.
	Pos token.Position

	// Span is the length of the directive text.
	Span int

	Names Names

	// Funcs are the top level functions of the file, for checking how the
	// body passes its test parameter around. See FileFuncs.
	Funcs map[string]*dst.FuncType
}

// NewDeclaration describes fn, whose doc comment holds the directive line.
func NewDeclaration(fn *dst.FuncDecl, directiveLine string, names Names) Declaration {
	decl := Declaration{
		Name:  fn.Name.Name,
		Func:  fn,
		Span:  len(directiveLine) - len(directive.Prefix),
		Names: names,
	}
	for _, line := range fn.Decs.Start.All() {
		if line == directiveLine {
			// Drop the blank comment line separating the directive from
			// the doc text.
			for n := len(decl.Markers); n > 0 && decl.Markers[n-1] == "//"; n-- {
				decl.Markers = decl.Markers[:n-1]
			}
			continue
		}
		decl.Markers = append(decl.Markers, line)
	}
	params := flatten(fn.Type.Params)
	decl.Async = len(params) == 2 &&
		isSelector(params[0].typ, names.Context, "Context") &&
		isTestingT(params[1].typ, names)
	return decl
}

func (d Declaration) errorf(format string, args ...interface{}) *directive.ConfigError {
	return &directive.ConfigError{
		Pos: d.Pos,
		End: d.Span,
		Msg: fmt.Sprintf(format, args...),
	}
}

// Expand builds the replacement of the declaration under cfg. The original
// function is consumed: its body moves into the replacement.
func Expand(cfg directive.Config, decl Declaration) (*dst.FuncDecl, error) {
	if err := checkShape(cfg, decl); err != nil {
		return nil, err
	}
	if cfg.Attempts < 1 {
		return nil, decl.errorf("attempts must be a positive integer, found `%d`", cfg.Attempts)
	}
	switch cfg.Model {
	case directive.Sync:
		return expandSync(cfg, decl), nil
	case directive.Async:
		return expandAsync(cfg, decl)
	default:
		return nil, decl.errorf("unknown execution model %s", cfg.Model)
	}
}

func checkShape(cfg directive.Config, decl Declaration) error {
	fn := decl.Func
	switch {
	case fn.Recv != nil:
		return decl.errorf("%s is a method; only test functions can be retried", decl.Name)
	case !isTestName(decl.Name):
		return decl.errorf("%s is not a test function; the name must have the form TestXxx", decl.Name)
	case fn.Type.TypeParams != nil && len(fn.Type.TypeParams.List) > 0:
		return decl.errorf("test function %s cannot have type parameters", decl.Name)
	case fn.Type.Results != nil && len(fn.Type.Results.List) > 0:
		return decl.errorf("test function %s cannot return values", decl.Name)
	case fn.Body == nil:
		return decl.errorf("test function %s has no body", decl.Name)
	}

	params := flatten(fn.Type.Params)
	if cfg.Model == directive.Async {
		if !decl.Async {
			return decl.errorf("async execution model requires an asynchronous body: %s must take (%s.Context, *%s.T)",
				decl.Name, decl.Names.Context, decl.Names.Testing)
		}
		return checkBody(decl, paramName(params[1], ""))
	}
	if decl.Async {
		return decl.errorf("%s takes a %s.Context; use `async` to retry an asynchronous body",
			decl.Name, decl.Names.Context)
	}
	if len(params) != 1 || !isTestingT(params[0].typ, decl.Names) {
		return decl.errorf("test function %s must take a single *%s.T", decl.Name, decl.Names.Testing)
	}
	return checkBody(decl, paramName(params[0], ""))
}

// isTestName matches the names go test runs as tests.
func isTestName(name string) bool {
	const prefix = "Test"
	if len(name) < len(prefix) || name[:len(prefix)] != prefix {
		return false
	}
	if len(name) == len(prefix) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(name[len(prefix):])
	return !unicode.IsLower(r)
}

type param struct {
	name *dst.Ident
	typ  dst.Expr
}

func flatten(fields *dst.FieldList) []param {
	if fields == nil {
		return nil
	}
	var out []param
	for _, f := range fields.List {
		if len(f.Names) == 0 {
			out = append(out, param{typ: f.Type})
			continue
		}
		for _, n := range f.Names {
			out = append(out, param{name: n, typ: f.Type})
		}
	}
	return out
}

func isSelector(e dst.Expr, pkg, name string) bool {
	sel, ok := e.(*dst.SelectorExpr)
	if !ok {
		return false
	}
	x, ok := sel.X.(*dst.Ident)
	return ok && x.Name == pkg && sel.Sel.Name == name
}

// isTestingT accepts *testing.T, and retry.T for bodies written against the
// runtime directly. Both become a *retry.R in the generated closure.
func isTestingT(e dst.Expr, names Names) bool {
	if star, ok := e.(*dst.StarExpr); ok {
		return isSelector(star.X, names.Testing, "T")
	}
	return isSelector(e, names.Retry, "T")
}

// paramName returns the name a parameter is declared with, or fallback when
// it is unnamed or blank.
func paramName(p param, fallback string) string {
	if p.name == nil || p.name.Name == "_" {
		return fallback
	}
	return p.name.Name
}

// usedNames collects every identifier of the function.
func usedNames(fn *dst.FuncDecl) map[string]bool {
	used := make(map[string]bool)
	dst.Inspect(fn, func(n dst.Node) bool {
		if id, ok := n.(*dst.Ident); ok {
			used[id.Name] = true
		}
		return true
	})
	return used
}

// fresh returns base, or base followed by the smallest number from 2 up,
// that is not taken, and marks it taken.
func fresh(base string, taken map[string]bool) string {
	name := base
	for i := 2; taken[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	taken[name] = true
	return name
}

func sel(x, name string) *dst.SelectorExpr {
	return &dst.SelectorExpr{X: dst.NewIdent(x), Sel: dst.NewIdent(name)}
}

func call(fun dst.Expr, args ...dst.Expr) *dst.CallExpr {
	return &dst.CallExpr{Fun: fun, Args: args}
}

func intLit(n int) *dst.BasicLit {
	return &dst.BasicLit{Kind: token.INT, Value: strconv.Itoa(n)}
}

func strLit(s string) *dst.BasicLit {
	return &dst.BasicLit{Kind: token.STRING, Value: strconv.Quote(s)}
}

func field(name string, typ dst.Expr) *dst.Field {
	return &dst.Field{Names: []*dst.Ident{dst.NewIdent(name)}, Type: typ}
}

func block(stmts ...dst.Stmt) *dst.BlockStmt {
	return &dst.BlockStmt{List: stmts}
}
