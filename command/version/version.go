// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package version

import (
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/mitchellh/cli"

	"github.com/hashicorp/flakytest/command/flags"
	"github.com/hashicorp/flakytest/internal/synth"
	"github.com/hashicorp/flakytest/version"
)

func New(ui cli.Ui) *cmd {
	c := &cmd{UI: ui}
	c.init()
	return c
}

type cmd struct {
	UI    cli.Ui
	flags *flag.FlagSet
	help  string

	format string
}

func (c *cmd) init() {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)
	c.flags.StringVar(
		&c.format,
		"format",
		PrettyFormat,
		fmt.Sprintf("Output format {%s}", strings.Join(GetSupportedFormats(), "|")))
	c.help = flags.Usage(help, c.flags)
}

const (
	PrettyFormat string = "pretty"
	JSONFormat   string = "json"
)

func GetSupportedFormats() []string {
	return []string{PrettyFormat, JSONFormat}
}

type VersionInfo struct {
	Version   string
	Revision  string
	BuildDate string `json:",omitempty"`
	Async     bool
}

func (c *cmd) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return 1
	}

	info := VersionInfo{
		Version:   version.GetHumanVersion(),
		Revision:  version.GitCommit,
		BuildDate: version.BuildDate,
		Async:     synth.Features().Async,
	}

	switch c.format {
	case PrettyFormat:
		out := strings.TrimRight(version.Info(), "\n")
		if !info.Async {
			out += "\nAsync execution model disabled in this build"
		}
		c.UI.Output(out)
	case JSONFormat:
		b, err := json.MarshalIndent(info, "", "    ")
		if err != nil {
			c.UI.Error(fmt.Sprintf("Error marshalling version info: %s", err))
			return 1
		}
		c.UI.Output(string(b))
	default:
		c.UI.Error(fmt.Sprintf("Invalid format, valid formats are {%s}", strings.Join(GetSupportedFormats(), "|")))
		return 1
	}
	return 0
}

func (c *cmd) Synopsis() string {
	return synopsis
}

func (c *cmd) Help() string {
	return c.help
}

const synopsis = "Prints the flakytest version"
const help = `
Usage: flakytest version [options]

  Prints the flakytest version.
`
