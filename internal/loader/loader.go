// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package loader resolves command line arguments into the test files that
// hold //flaky:test directives.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/tools/go/packages"

	"github.com/hashicorp/flakytest/internal/directive"
	"github.com/hashicorp/flakytest/internal/source"
)

// Config controls Load.
type Config struct {
	// Dir is the directory patterns are resolved in. Empty means the
	// current directory.
	Dir string

	// Tag is the build tag enabling source files.
	Tag string

	// Suffix names generated files, which are never candidates.
	Suffix string

	Logger hclog.Logger
}

// Load returns the candidate files named by args, sorted and without
// duplicates. Arguments ending in .go are files, everything else is a
// package pattern. No arguments means the package in Dir.
func Load(ctx context.Context, cfg Config, args []string) ([]string, error) {
	if cfg.Tag == "" {
		cfg.Tag = source.DefaultTag
	}
	if cfg.Suffix == "" {
		cfg.Suffix = source.DefaultSuffix
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	if len(args) == 0 {
		args = []string{"."}
	}

	var files, patterns []string
	for _, arg := range args {
		if strings.HasSuffix(arg, ".go") {
			if cfg.Dir != "" && !filepath.IsAbs(arg) {
				arg = filepath.Join(cfg.Dir, arg)
			}
			files = append(files, arg)
			continue
		}
		patterns = append(patterns, arg)
	}

	if len(patterns) > 0 {
		found, err := loadPatterns(ctx, cfg, patterns)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	seen := make(map[string]bool)
	var out []string
	for _, f := range files {
		f = filepath.Clean(f)
		if seen[f] {
			continue
		}
		seen[f] = true

		ok, err := candidate(f, cfg.Suffix)
		if err != nil {
			return nil, err
		}
		if !ok {
			cfg.Logger.Trace("skipping file", "path", f)
			continue
		}
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

func loadPatterns(ctx context.Context, cfg Config, patterns []string) ([]string, error) {
	pcfg := &packages.Config{
		Context:    ctx,
		Dir:        cfg.Dir,
		Mode:       packages.NeedName | packages.NeedFiles,
		Tests:      true,
		BuildFlags: []string{"-tags=" + cfg.Tag},
	}
	pkgs, err := packages.Load(pcfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages %s: %w", strings.Join(patterns, " "), err)
	}

	var files []string
	for _, pkg := range pkgs {
		if err := packageLoadErrors(pkg); err != nil {
			return nil, err
		}
		cfg.Logger.Debug("loaded package", "package", pkg.ID, "files", len(pkg.GoFiles))
		for _, f := range pkg.GoFiles {
			if strings.HasSuffix(f, "_test.go") {
				files = append(files, f)
			}
		}
	}
	return files, nil
}

func packageLoadErrors(pkg *packages.Package) error {
	if len(pkg.Errors) == 0 {
		return nil
	}

	buf := new(strings.Builder)
	for _, err := range pkg.Errors {
		buf.WriteString("\n")
		buf.WriteString(err.Error())
	}
	return fmt.Errorf("package %s has errors: %s", pkg.PkgPath, buf.String())
}

var generatedMarker = []byte(source.Header)

// candidate reports whether path is a test file holding a directive that is
// not itself generated.
func candidate(path, suffix string) (bool, error) {
	if !strings.HasSuffix(path, "_test.go") || strings.HasSuffix(path, suffix) {
		return false, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if bytes.HasPrefix(src, generatedMarker) {
		return false, nil
	}
	for _, line := range bytes.Split(src, []byte("\n")) {
		if directive.HasDirective(string(bytes.TrimSpace(line))) {
			return true, nil
		}
	}
	return false, nil
}
