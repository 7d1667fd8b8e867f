// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package check

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mitchellh/cli"

	"github.com/hashicorp/flakytest/command/flags"
	"github.com/hashicorp/flakytest/command/helpers"
	"github.com/hashicorp/flakytest/internal/directive"
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

	noColor bool
}

func (c *cmd) init() {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)
	c.flags.BoolVar(&c.noColor, "no-color", false,
		"Disable colored output. Color is also off when the output is not a terminal.")

	c.config = &flags.ConfigFlags{}
	flags.Merge(c.flags, c.config.SourceFlags())
	c.help = flags.Usage(help, c.flags)
}

func (c *cmd) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
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

	opts := helpers.GenerateOptions(cfg, logger)
	opts.DryRun = true
	report, err := generate.Run(ctx, files, opts)
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error checking files: %s", err))
		return 1
	}

	p := newPrinter(c.noColor)
	diags := report.Diagnostics()
	for _, d := range diags {
		c.UI.Output(p.diagnostic(d))
	}

	tests := len(report.Tests())
	if len(diags) > 0 {
		c.UI.Error(fmt.Sprintf("Found %d invalid directives in %d annotated tests", len(diags), tests))
		return 1
	}
	c.UI.Info(fmt.Sprintf("Checked %d annotated tests in %d files, no errors", tests, len(files)))
	return 0
}

type printer struct {
	bold  *color.Color
	red   *color.Color
	green *color.Color
	lines map[string][]string
}

func newPrinter(noColor bool) *printer {
	p := &printer{
		bold:  color.New(color.Bold),
		red:   color.New(color.FgRed, color.Bold),
		green: color.New(color.FgGreen),
		lines: make(map[string][]string),
	}
	if noColor {
		p.bold.DisableColor()
		p.red.DisableColor()
		p.green.DisableColor()
	}
	return p
}

// diagnostic renders err with the offending directive underlined:
//
//	widget_test.go:7:14: error: attempts must be a positive integer, found `0`
//	  //flaky:test 0
//	               ^
//	  expected `<int>`, `times = <int>` or `async`
func (p *printer) diagnostic(err *directive.ConfigError) string {
	var b strings.Builder
	b.WriteString(p.bold.Sprint(err.Pos.String() + ":"))
	b.WriteString(" ")
	b.WriteString(p.red.Sprint("error:"))
	b.WriteString(" ")
	b.WriteString(p.bold.Sprint(err.Msg))

	if line, ok := p.line(err.Pos.Filename, err.Pos.Line); ok && err.Pos.Column > 0 {
		trimmed := strings.TrimLeft(line, " \t")
		col := err.Pos.Column - 1 - (len(line) - len(trimmed))
		if col >= 0 && col <= len(trimmed) {
			width := err.End - err.Offset
			if width < 1 {
				width = 1
			}
			if col+width > len(trimmed) && col < len(trimmed) {
				width = len(trimmed) - col
			}
			b.WriteString("\n  ")
			b.WriteString(trimmed)
			b.WriteString("\n  ")
			b.WriteString(strings.Repeat(" ", col))
			b.WriteString(p.green.Sprint(strings.Repeat("^", width)))
		}
	}
	if err.Expected != "" {
		b.WriteString("\n  ")
		b.WriteString(err.Expected)
	}
	return b.String()
}

func (p *printer) line(filename string, n int) (string, bool) {
	lines, ok := p.lines[filename]
	if !ok {
		src, err := os.ReadFile(filename)
		if err == nil {
			lines = strings.Split(string(bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))), "\n")
		}
		p.lines[filename] = lines
	}
	if n < 1 || n > len(lines) {
		return "", false
	}
	return lines[n-1], true
}

func (c *cmd) Synopsis() string {
	return synopsis
}

func (c *cmd) Help() string {
	return c.help
}

const (
	synopsis = "Validates flakytest directives"
	help     = `
Usage: flakytest check [options] [packages|files]

  Parses every //flaky:test directive without writing anything and prints
  the invalid ones with their location. Exits 1 when any directive is
  invalid.

  Example:

    $ flakytest check ./...
`
)
