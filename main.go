// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mitchellh/cli"

	"github.com/hashicorp/flakytest/command"
	"github.com/hashicorp/flakytest/version"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	log.SetOutput(io.Discard)

	ui := &cli.BasicUi{
		Reader:      os.Stdin,
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}
	cmds := command.Commands(ui)
	var names []string
	for c := range cmds {
		names = append(names, c)
	}

	cli := &cli.CLI{
		Name:         "flakytest",
		Args:         os.Args[1:],
		Version:      version.GetHumanVersion(),
		Commands:     cmds,
		Autocomplete: true,
		HelpFunc:     cli.FilteredHelpFunc(names, cli.BasicHelpFunc("flakytest")),
		HelpWriter:   os.Stdout,
		ErrorWriter:  os.Stderr,
	}

	exitCode, err := cli.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing CLI: %v\n", err)
		return 1
	}
	return exitCode
}
