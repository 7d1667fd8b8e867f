// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mitchellh/cli"

	"github.com/hashicorp/flakytest/command/check"
	"github.com/hashicorp/flakytest/command/generate"
	"github.com/hashicorp/flakytest/command/list"
	"github.com/hashicorp/flakytest/command/version"
	"github.com/hashicorp/flakytest/command/watch"
)

// Commands returns the mapping of all the available flakytest commands.
func Commands(ui cli.Ui) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"check": func() (cli.Command, error) {
			return check.New(ui), nil
		},
		"generate": func() (cli.Command, error) {
			return generate.New(ui), nil
		},
		"list": func() (cli.Command, error) {
			return list.New(ui), nil
		},
		"version": func() (cli.Command, error) {
			return version.New(ui), nil
		},
		"watch": func() (cli.Command, error) {
			return watch.New(ui, makeShutdownCh()), nil
		},
	}
}

// makeShutdownCh returns a channel that can be used for shutdown
// notifications for commands. This channel will send a message for every
// interrupt or SIGTERM received.
func makeShutdownCh() <-chan struct{} {
	resultCh := make(chan struct{})
	signalCh := make(chan os.Signal, 4)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		for {
			<-signalCh
			resultCh <- struct{}{}
		}
	}()
	return resultCh
}
