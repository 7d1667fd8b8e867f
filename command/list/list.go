// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package list

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-bexpr"
	"github.com/mitchellh/cli"
	"github.com/ryanuber/columnize"

	"github.com/hashicorp/flakytest/command/flags"
	"github.com/hashicorp/flakytest/command/helpers"
	"github.com/hashicorp/flakytest/internal/generate"
	"github.com/hashicorp/flakytest/internal/source"
)

const (
	PrettyFormat string = "pretty"
	JSONFormat   string = "json"
)

func getSupportedFormats() []string {
	return []string{PrettyFormat, JSONFormat}
}

func formatIsValid(f string) bool {
	for _, format := range getSupportedFormats() {
		if f == format {
			return true
		}
	}
	return false
}

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

	format string
	filter string
}

func (c *cmd) init() {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)

	c.flags.StringVar(
		&c.format,
		"format",
		PrettyFormat,
		fmt.Sprintf("Output format {%s} (default: %s)", strings.Join(getSupportedFormats(), "|"), PrettyFormat),
	)
	c.flags.StringVar(&c.filter, "filter", "",
		"go-bexpr filter string to filter the tests, for example 'Model == \"async\"'")

	c.config = &flags.ConfigFlags{}
	flags.Merge(c.flags, c.config.SourceFlags())
	c.help = flags.Usage(help, c.flags)
}

func (c *cmd) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return 1
	}

	if !formatIsValid(c.format) {
		c.UI.Error(fmt.Sprintf("Invalid format, valid formats are {%s}", strings.Join(getSupportedFormats(), "|")))
		return 1
	}

	var filterType []source.TestInfo
	filter, err := bexpr.CreateFilter(c.filter, nil, filterType)
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error while creating filter: %s", err))
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
		c.UI.Error(fmt.Sprintf("Error reading tests: %s", err))
		return 1
	}

	raw, err := filter.Execute(report.Tests())
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error while filtering tests: %s", err))
		return 1
	}
	tests, _ := raw.([]source.TestInfo)

	if len(tests) == 0 {
		c.UI.Info("No annotated tests found")
		return 0
	}

	switch c.format == JSONFormat {
	case true:
		output, err := json.MarshalIndent(tests, "", "    ")
		if err != nil {
			c.UI.Error(fmt.Sprintf("Error marshalling JSON: %s", err))
			return 1
		}
		c.UI.Output(string(output))
		return 0

	default:
		c.UI.Output(formatTests(tests))
	}

	return 0
}

func formatTests(tests []source.TestInfo) string {
	result := make([]string, 0, len(tests)+1)
	result = append(result, "File\x1fLine\x1fTest\x1fAttempts\x1fModel\x1fStatus")

	for _, t := range tests {
		attempts := strconv.Itoa(t.Attempts)
		status := "ok"
		switch {
		case t.Error != "":
			attempts = "-"
			status = "error: " + t.Error
		case t.ShouldFail:
			status = fmt.Sprintf("should fail %q", t.Expected)
		}
		model := t.Model
		if len(t.Options) > 0 {
			model += "(" + strings.Join(t.Options, ", ") + ")"
		}
		result = append(result, fmt.Sprintf("%s\x1f%d\x1f%s\x1f%s\x1f%s\x1f%s",
			t.File, t.Line, t.Name, attempts, model, status))
	}

	return columnize.Format(result, &columnize.Config{Delim: string([]byte{0x1f})})
}

func (c *cmd) Synopsis() string {
	return synopsis
}

func (c *cmd) Help() string {
	return c.help
}

const (
	synopsis = "Lists tests annotated with flakytest directives"
	help     = `
Usage: flakytest list [options] [packages|files]

  Lists the tests annotated with //flaky:test, their number of attempts and
  execution model. Tests whose directive is invalid are listed with the
  error.

  Example:

    $ flakytest list ./...

  Only list asynchronous tests, as JSON:

    $ flakytest list -format=json -filter='Model == "async"' ./...
`
)
