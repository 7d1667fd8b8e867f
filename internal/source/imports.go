// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package source

import (
	"go/ast"
	"go/token"
	"path"
	"strconv"
	"strings"

	"github.com/dave/dst"

	"github.com/hashicorp/flakytest/internal/synth"
)

// resolveNames finds the names the file uses for the packages referenced by
// generated code. Packages the file does not import get their default name,
// or an alias when the default is already declared at file scope.
func resolveNames(af *ast.File) synth.Names {
	imported := make(map[string]string)
	scope := make(map[string]bool)
	for _, spec := range af.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := path.Base(p)
		if spec.Name != nil {
			name = spec.Name.Name
		}
		imported[p] = name
		scope[name] = true
	}
	for _, d := range af.Decls {
		switch d := d.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil {
				scope[d.Name.Name] = true
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.ValueSpec:
					for _, n := range s.Names {
						scope[n.Name] = true
					}
				case *ast.TypeSpec:
					scope[s.Name.Name] = true
				}
			}
		}
	}

	pick := func(importPath, name, alias string) string {
		if n, ok := imported[importPath]; ok {
			return n
		}
		if !scope[name] {
			scope[name] = true
			return name
		}
		for i := 1; ; i++ {
			candidate := alias
			if i > 1 {
				candidate += strconv.Itoa(i)
			}
			if !scope[candidate] {
				scope[candidate] = true
				return candidate
			}
		}
	}

	return synth.Names{
		Testing: pick("testing", "testing", "gotesting"),
		Context: pick("context", "context", "gocontext"),
		Retry:   pick(synth.RetryPath, "retry", "flakyretry"),
		Async:   pick(synth.AsyncPath, "async", "flakyasync"),
	}
}

func isStd(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}

// addImport imports importPath as name unless the file already imports it.
// Standard library packages join the first import group, others the last.
func addImport(f *dst.File, importPath, name string) {
	quoted := strconv.Quote(importPath)
	for _, spec := range f.Imports {
		if spec.Path.Value == quoted {
			return
		}
	}

	spec := &dst.ImportSpec{Path: &dst.BasicLit{Kind: token.STRING, Value: quoted}}
	if name != path.Base(importPath) {
		spec.Name = dst.NewIdent(name)
	}
	f.Imports = append(f.Imports, spec)

	var gd *dst.GenDecl
	for _, d := range f.Decls {
		if d, ok := d.(*dst.GenDecl); ok && d.Tok == token.IMPORT {
			gd = d
			break
		}
	}
	if gd == nil {
		gd = &dst.GenDecl{Tok: token.IMPORT, Lparen: true}
		f.Decls = append([]dst.Decl{gd}, f.Decls...)
	}
	gd.Lparen = true

	if isStd(importPath) {
		gd.Specs = append([]dst.Spec{spec}, gd.Specs...)
		return
	}
	if n := len(gd.Specs); n > 0 {
		last := gd.Specs[n-1].(*dst.ImportSpec)
		if p, err := strconv.Unquote(last.Path.Value); err == nil && isStd(p) {
			spec.Decs.Before = dst.EmptyLine
		}
	}
	gd.Specs = append(gd.Specs, spec)
}
