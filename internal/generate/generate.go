// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package generate rewrites many source files concurrently and writes, or
// checks, their outputs.
package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/rboyer/safeio"
	"golang.org/x/sync/errgroup"

	"github.com/hashicorp/flakytest/internal/directive"
	"github.com/hashicorp/flakytest/internal/source"
)

// ErrDiagnostics is returned in strict mode when a directive is invalid.
var ErrDiagnostics = errors.New("invalid flakytest directives")

// ErrStale is returned in check mode when an output is out of date.
var ErrStale = errors.New("generated files are out of date")

// Options control Run.
type Options struct {
	Source source.Options

	// Check compares outputs with the files on disk instead of writing.
	Check bool

	// Strict fails the run on any diagnostic and skips writing the files
	// carrying them.
	Strict bool

	// DryRun rewrites without writing or comparing.
	DryRun bool

	// Concurrency bounds the number of files processed at once.
	Concurrency int

	Logger hclog.Logger
}

// FileReport is the outcome for one source file.
type FileReport struct {
	Source string
	Output string
	Tests  []source.TestInfo

	Diagnostics []*directive.ConfigError

	// Stale is set when the output on disk differs from the generated one.
	Stale bool

	// Written is set when the output was written.
	Written bool

	// Diff is the unified diff from the output on disk to the generated
	// one, in check mode.
	Diff string

	// Err is the operational error of the file, if any.
	Err error
}

// Report is the outcome of Run, in the order of the files given.
type Report struct {
	Files []FileReport
}

// Diagnostics returns the directive errors of every file.
func (r *Report) Diagnostics() []*directive.ConfigError {
	var out []*directive.ConfigError
	for _, f := range r.Files {
		out = append(out, f.Diagnostics...)
	}
	return out
}

// Tests returns the annotated tests of every file.
func (r *Report) Tests() []source.TestInfo {
	var out []source.TestInfo
	for _, f := range r.Files {
		out = append(out, f.Tests...)
	}
	return out
}

// Stale returns the files whose output is out of date.
func (r *Report) Stale() []FileReport {
	var out []FileReport
	for _, f := range r.Files {
		if f.Stale {
			out = append(out, f)
		}
	}
	return out
}

// Run processes files. Per file errors are collected in the report and
// returned together; they do not stop the other files.
func Run(ctx context.Context, files []string, opts Options) (*Report, error) {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	report := &Report{Files: make([]FileReport, len(files))}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	var mu sync.Mutex
	var merr *multierror.Error
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fr := processFile(path, opts)
			report.Files[i] = fr
			if fr.Err != nil {
				mu.Lock()
				merr = multierror.Append(merr, fr.Err)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		merr = multierror.Append(merr, err)
	}

	if opts.Strict {
		if n := len(report.Diagnostics()); n > 0 {
			merr = multierror.Append(merr, fmt.Errorf("%w: %d found", ErrDiagnostics, n))
		}
	}
	if opts.Check {
		if n := len(report.Stale()); n > 0 {
			merr = multierror.Append(merr, fmt.Errorf("%w: %d files", ErrStale, n))
		}
	}
	return report, merr.ErrorOrNil()
}

func processFile(path string, opts Options) FileReport {
	logger := opts.Logger.With("file", path)
	fr := FileReport{Source: path}

	src, err := os.ReadFile(path)
	if err != nil {
		fr.Err = fmt.Errorf("failed to read %s: %w", path, err)
		return fr
	}
	f, err := source.Rewrite(path, src, opts.Source)
	if err != nil {
		fr.Err = err
		return fr
	}
	fr.Output = f.Output
	fr.Tests = f.Tests
	fr.Diagnostics = f.Diagnostics
	for _, d := range f.Diagnostics {
		logger.Debug("invalid directive", "error", d)
	}
	if opts.DryRun {
		return fr
	}

	current, err := os.ReadFile(f.Output)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fr.Err = fmt.Errorf("failed to read %s: %w", f.Output, err)
		return fr
	}
	if bytes.Equal(current, f.Content) {
		logger.Debug("output is up to date", "output", f.Output)
		return fr
	}
	fr.Stale = true

	if opts.Check {
		fr.Diff, err = unifiedDiff(f.Output, current, f.Content)
		if err != nil {
			fr.Err = fmt.Errorf("failed to diff %s: %w", f.Output, err)
		}
		return fr
	}
	if opts.Strict && len(f.Diagnostics) > 0 {
		logger.Error("not writing output with invalid directives", "output", f.Output)
		return fr
	}
	if err := writeFile(f.Output, f.Content); err != nil {
		fr.Err = fmt.Errorf("failed to write %s: %w", f.Output, err)
		return fr
	}
	fr.Written = true
	fr.Stale = false
	logger.Debug("generated", "output", f.Output, "tests", len(f.Tests))
	return fr
}

func unifiedDiff(name string, current, generated []byte) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(current)),
		B:        difflib.SplitLines(string(generated)),
		FromFile: name,
		ToFile:   name + " (generated)",
		Context:  3,
	})
}

func writeFile(output string, contents []byte) error {
	fh, err := safeio.OpenFile(output, 0666)
	if err != nil {
		return err
	}
	defer fh.Close()

	if _, err := fh.Write(contents); err != nil {
		return err
	}
	return fh.Commit()
}
