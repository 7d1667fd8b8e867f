// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package source rewrites a test file holding //flaky:test directives into
// its generated counterpart.
//
// The source file is guarded by a build tag (flakysrc by default) so that it
// only compiles when generating. The output file negates the tag and carries
// every annotated test replaced by its retrying wrapper:
//
//	widget_test.go           //go:build flakysrc
//	widget_flakygen_test.go  //go:build !flakysrc
package source

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"strings"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"golang.org/x/tools/imports"

	"github.com/hashicorp/flakytest/internal/directive"
	"github.com/hashicorp/flakytest/internal/synth"
)

const (
	// Header marks generated files.
	Header = "// Code generated by flakytest. DO NOT EDIT."

	// DefaultTag is the build tag guarding source files.
	DefaultTag = "flakysrc"

	// DefaultSuffix replaces _test.go in the name of the generated file.
	DefaultSuffix = "_flakygen_test.go"
)

var (
	// ErrNotTestFile is returned for files not ending in _test.go.
	ErrNotTestFile = errors.New("not a _test.go file")

	// ErrGenerated is returned for files that are themselves generated.
	ErrGenerated = errors.New("file is generated")

	// ErrMissingConstraint is returned when the file is not guarded by the
	// source build tag.
	ErrMissingConstraint = errors.New("missing build constraint")
)

// Options control Rewrite.
type Options struct {
	// Tag is the build tag guarding the source file.
	Tag string

	// Suffix names the output file.
	Suffix string

	Features directive.Features

	// FixImports runs goimports over the output, adding imports referenced
	// only by async options.
	FixImports bool
}

// DefaultOptions returns the options used by the flakytest command.
func DefaultOptions() Options {
	return Options{
		Tag:        DefaultTag,
		Suffix:     DefaultSuffix,
		Features:   synth.Features(),
		FixImports: true,
	}
}

func (o Options) withDefaults() Options {
	if o.Tag == "" {
		o.Tag = DefaultTag
	}
	if o.Suffix == "" {
		o.Suffix = DefaultSuffix
	}
	return o
}

// TestInfo describes an annotated test.
type TestInfo struct {
	File       string
	Name       string
	Line       int
	Attempts   int
	Model      string
	Options    []string
	ShouldFail bool
	Expected   string

	// Error is the message of the directive's diagnostic, if any.
	Error string
}

// File is the result of rewriting one source file.
type File struct {
	Source string
	Output string

	// Content is the formatted generated file.
	Content []byte

	Tests       []TestInfo
	Diagnostics []*directive.ConfigError
}

// OutputName returns the name of the file generated from filename.
func OutputName(filename, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return strings.TrimSuffix(filename, "_test.go") + suffix
}

// Rewrite generates the output for the source file filename with contents
// src. Directive errors do not fail the rewrite: they are returned in
// File.Diagnostics and embedded in the output so that compiling it reports
// them at the directive.
func Rewrite(filename string, src []byte, opts Options) (*File, error) {
	opts = opts.withDefaults()
	if !strings.HasSuffix(filename, "_test.go") {
		return nil, fmt.Errorf("%s: %w", filename, ErrNotTestFile)
	}

	fset := token.NewFileSet()
	af, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	if ast.IsGenerated(af) {
		return nil, fmt.Errorf("%s: %w", filename, ErrGenerated)
	}
	constraint, err := outputConstraint(af, opts.Tag)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	dec := decorator.NewDecorator(fset)
	df, err := dec.DecorateFile(af)
	if err != nil {
		return nil, fmt.Errorf("failed to decorate %s: %w", filename, err)
	}
	if !constraint.apply(&df.Decs.Start) {
		return nil, fmt.Errorf("%s: build constraint is not part of the file header: %w", filename, ErrMissingConstraint)
	}
	df.Decs.Start.Prepend(Header, "\n")

	rw := &rewriter{
		fset:  fset,
		dec:   dec,
		file:  df,
		opts:  opts,
		names: resolveNames(af),
		funcs: synth.FileFuncs(df),
		out: &File{
			Source: filename,
			Output: OutputName(filename, opts.Suffix),
		},
	}
	for _, d := range af.Decls {
		if fd, ok := d.(*ast.FuncDecl); ok {
			rw.visit(fd)
		}
	}
	rw.finish()

	var buf bytes.Buffer
	if err := decorator.Fprint(&buf, df); err != nil {
		return nil, fmt.Errorf("failed to print %s: %w", rw.out.Output, err)
	}
	content, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format %s: %w", rw.out.Output, err)
	}
	if opts.FixImports {
		content, err = imports.Process(rw.out.Output, content, &imports.Options{
			Comments:  true,
			TabIndent: true,
			TabWidth:  8,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fix imports of %s: %w", rw.out.Output, err)
		}
	}
	rw.out.Content = content
	return rw.out, nil
}

type rewriter struct {
	fset  *token.FileSet
	dec   *decorator.Decorator
	file  *dst.File
	opts  Options
	names synth.Names
	funcs map[string]*dst.FuncType
	out   *File

	expanded bool
	async    bool
	diags    []dst.Decl
}

// visit expands fd when it carries a directive.
func (rw *rewriter) visit(fd *ast.FuncDecl) {
	if fd.Doc == nil {
		return
	}
	var found, expect *ast.Comment
	var dup *ast.Comment
	for _, c := range fd.Doc.List {
		switch {
		case directive.HasDirective(c.Text) && found == nil:
			found = c
		case directive.HasDirective(c.Text) && dup == nil:
			dup = c
		case directive.IsShouldFail(c.Text):
			expect = c
		}
	}
	if found == nil {
		return
	}

	pos := rw.fset.Position(found.Slash)
	info := TestInfo{
		File:  rw.out.Source,
		Name:  fd.Name.Name,
		Line:  pos.Line,
		Model: directive.Sync.String(),
	}
	repl, cfg, err := rw.expand(fd, found, expect, dup)
	if err != nil {
		var cerr *directive.ConfigError
		if !errors.As(err, &cerr) {
			cerr = &directive.ConfigError{Pos: pos, Msg: err.Error()}
		}
		info.Error = cerr.Message()
		rw.out.Diagnostics = append(rw.out.Diagnostics, cerr)
		rw.diags = append(rw.diags, synth.Diagnostic(cerr))
	} else {
		rw.replace(rw.dec.Dst.Nodes[fd].(dst.Decl), repl)
		rw.expanded = true
		rw.async = rw.async || cfg.Model == directive.Async
		info.Attempts = cfg.Attempts
		info.Model = cfg.Model.String()
		info.Options = cfg.AsyncOptions
	}
	if expect != nil {
		info.ShouldFail = true
		if exp, err := directive.ParseExpectation(expect.Text, rw.fset.Position(expect.Slash)); err == nil {
			info.Expected = exp.Substring
		}
	}
	rw.out.Tests = append(rw.out.Tests, info)
}

func (rw *rewriter) expand(fd *ast.FuncDecl, found, expect, dup *ast.Comment) (*dst.FuncDecl, directive.Config, error) {
	if dup != nil {
		return nil, directive.Config{}, &directive.ConfigError{
			Pos: rw.fset.Position(dup.Slash),
			End: len(dup.Text) - len(directive.Prefix),
			Msg: fmt.Sprintf("duplicate %s directive", directive.Prefix),
		}
	}
	pos := rw.fset.Position(found.Slash)
	cfg, err := directive.ParseComment(found.Text, pos, rw.opts.Features)
	if err != nil {
		return nil, cfg, err
	}

	fn, ok := rw.dec.Dst.Nodes[fd].(*dst.FuncDecl)
	if !ok {
		return nil, cfg, fmt.Errorf("no decorated node for %s", fd.Name.Name)
	}
	decl := synth.NewDeclaration(fn, found.Text, rw.names)
	decl.Pos = pos
	decl.Funcs = rw.funcs
	if expect != nil {
		exp, err := directive.ParseExpectation(expect.Text, rw.fset.Position(expect.Slash))
		if err != nil {
			return nil, cfg, err
		}
		decl.Expect = exp
	}
	repl, err := synth.Expand(cfg, decl)
	return repl, cfg, err
}

func (rw *rewriter) replace(old dst.Decl, repl *dst.FuncDecl) {
	for i, d := range rw.file.Decls {
		if d == old {
			rw.file.Decls[i] = repl
			return
		}
	}
}

// finish adds the imports used by the wrappers and appends the diagnostics.
func (rw *rewriter) finish() {
	if rw.expanded {
		addImport(rw.file, "testing", rw.names.Testing)
		addImport(rw.file, synth.RetryPath, rw.names.Retry)
		if rw.async {
			addImport(rw.file, "context", rw.names.Context)
			addImport(rw.file, synth.AsyncPath, rw.names.Async)
		}
	}
	rw.file.Decls = append(rw.file.Decls, rw.diags...)
}
