// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package generate

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/mitchellh/cli"

	"github.com/hashicorp/flakytest/command/flags"
	"github.com/hashicorp/flakytest/command/helpers"
	"github.com/hashicorp/flakytest/internal/generate"
)

func New(ui cli.Ui) *cmd {
	c := &cmd{UI: ui}
	c.init()
	return c
}

type cmd struct {
	UI     cli.Ui
	flags  *flag.FlagSet
	config *flags.ConfigFlags
	help   string

	check  bool
	dryRun bool
}

func (c *cmd) init() {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)
	c.flags.BoolVar(&c.check, "check", false,
		"Do not write outputs. Report the outputs that are out of date with a diff "+
			"and exit 1 when there are any.")
	c.flags.BoolVar(&c.dryRun, "dry-run", false,
		"Rewrite the source files and report the result without writing anything.")

	c.config = &flags.ConfigFlags{}
	flags.Merge(c.flags, c.config.SourceFlags())
	flags.Merge(c.flags, c.config.GenerateFlags())
	c.help = flags.Usage(help, c.flags)
}

func (c *cmd) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return 1
	}
	if c.check && c.dryRun {
		c.UI.Error("Only one of -check or -dry-run may be given")
		return 1
	}

	cfg, err := c.config.Config()
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error loading configuration: %s", err))
		return 1
	}
	logger, err := helpers.Logger(c.UI, cfg)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx := context.Background()
	files, err := helpers.LoadFiles(ctx, cfg, c.flags.Args(), logger)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	if len(files) == 0 {
		c.UI.Info("No files with flakytest directives found")
		return 0
	}

	opts := helpers.GenerateOptions(cfg, logger)
	opts.Check = c.check
	opts.DryRun = c.dryRun
	report, err := generate.Run(ctx, files, opts)

	for _, f := range report.Files {
		for _, d := range f.Diagnostics {
			c.UI.Warn(d.Error())
		}
		switch {
		case f.Err != nil:
		case f.Stale && f.Diff != "":
			c.UI.Output(f.Diff)
		case f.Written:
			c.UI.Info(fmt.Sprintf("Wrote %s (%d tests)", relative(f.Output), len(f.Tests)))
		}
	}

	if err != nil {
		switch {
		case errors.Is(err, generate.ErrStale) && !errors.Is(err, generate.ErrDiagnostics):
			c.UI.Error(fmt.Sprintf("%d generated files are out of date, run flakytest generate", len(report.Stale())))
		default:
			c.UI.Error(fmt.Sprintf("Error generating files: %s", err))
		}
		return 1
	}
	return 0
}

func relative(path string) string {
	if rel, err := filepath.Rel(".", path); err == nil {
		return rel
	}
	return path
}

func (c *cmd) Synopsis() string {
	return synopsis
}

func (c *cmd) Help() string {
	return c.help
}

const (
	synopsis = "Generates retrying wrappers for flaky tests"
	help     = `
Usage: flakytest generate [options] [packages|files]

  Rewrites every test file holding //flaky:test directives into a generated
  file whose annotated tests are retried. Arguments ending in .go are files,
  anything else is a package pattern. The default is the current package.

  Invalid directives are reported and embedded in the generated file so that
  compiling it fails at the directive. With -strict they also fail the
  command and the affected files are not written.

  Example:

    $ flakytest generate ./...

  Verify in CI that generated files are up to date:

    $ flakytest generate -check ./...
`
)
