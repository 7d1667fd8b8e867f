// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package watch

import (
	"context"
	"flag"
	"fmt"

	"github.com/mitchellh/cli"

	"github.com/hashicorp/flakytest/command/flags"
	"github.com/hashicorp/flakytest/command/helpers"
	"github.com/hashicorp/flakytest/internal/generate"
	"github.com/hashicorp/flakytest/internal/watch"
)

func New(ui cli.Ui, shutdownCh <-chan struct{}) *cmd {
	c := &cmd{UI: ui, shutdownCh: shutdownCh}
	c.init()
	return c
}

type cmd struct {
	UI         cli.Ui
	shutdownCh <-chan struct{}
	flags      *flag.FlagSet
	config     *flags.ConfigFlags
	help       string
}

func (c *cmd) init() {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)
	c.config = &flags.ConfigFlags{}
	flags.Merge(c.flags, c.config.SourceFlags())
	flags.Merge(c.flags, c.config.GenerateFlags())
	flags.Merge(c.flags, c.config.WatchFlags())
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	files, err := helpers.LoadFiles(ctx, cfg, c.flags.Args(), logger)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	if len(files) == 0 {
		c.UI.Error("No files with flakytest directives found")
		return 1
	}

	opts := helpers.GenerateOptions(cfg, logger)
	c.generate(ctx, files, opts)

	w, err := watch.New(files, cfg.WatchInterval, logger)
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error watching files: %s", err))
		return 1
	}
	w.Start(ctx)
	defer func() {
		if err := w.Stop(); err != nil {
			logger.Warn("error stopping watcher", "error", err)
		}
	}()

	c.UI.Info(fmt.Sprintf("Watching %d files for changes", len(files)))
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return 0
			}
			logger.Debug("file changed", "file", ev.Path)
			c.generate(ctx, []string{ev.Path}, opts)
		case <-c.shutdownCh:
			logger.Info("shutting down")
			return 0
		}
	}
}

// generate reports problems without stopping the watch; the next change
// may fix them.
func (c *cmd) generate(ctx context.Context, files []string, opts generate.Options) {
	report, err := generate.Run(ctx, files, opts)
	for _, f := range report.Files {
		for _, d := range f.Diagnostics {
			c.UI.Warn(d.Error())
		}
		if f.Written {
			c.UI.Info(fmt.Sprintf("Wrote %s (%d tests)", f.Output, len(f.Tests)))
		}
	}
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error generating files: %s", err))
	}
}

func (c *cmd) Synopsis() string {
	return synopsis
}

func (c *cmd) Help() string {
	return c.help
}

const (
	synopsis = "Regenerates outputs when source files change"
	help     = `
Usage: flakytest watch [options] [packages|files]

  Generates the outputs of the given source files, then watches the files
  and regenerates an output whenever its source changes, until interrupted.
  Files added after the watch starts are not picked up.

  Example:

    $ flakytest watch ./...
`
)
