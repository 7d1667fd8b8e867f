// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package helpers

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp/flakytest/internal/config"
	"github.com/hashicorp/flakytest/internal/directive"
	"github.com/hashicorp/flakytest/internal/generate"
	"github.com/hashicorp/flakytest/internal/loader"
	"github.com/hashicorp/flakytest/internal/source"
	"github.com/hashicorp/flakytest/internal/synth"
	"github.com/hashicorp/flakytest/logging"
)

// Logger returns the command logger. Log lines go to the UI error stream.
func Logger(ui cli.Ui, cfg config.Config) (hclog.Logger, error) {
	return logging.Setup(logging.Config{
		Name:     "flakytest",
		LogLevel: cfg.LogLevel,
		LogJSON:  cfg.LogJSON,
	}, &cli.UiWriter{Ui: errorUi{ui}})
}

// errorUi sends informational output to the error stream so that logs do
// not mix with command output.
type errorUi struct {
	cli.Ui
}

func (u errorUi) Info(s string) {
	u.Ui.Error(s)
}

// SourceOptions converts the configuration into rewrite options. Async is
// only enabled when the build supports it.
func SourceOptions(cfg config.Config) source.Options {
	return source.Options{
		Tag:        cfg.Tag,
		Suffix:     cfg.Suffix,
		Features:   directive.Features{Async: cfg.Async && synth.Features().Async},
		FixImports: cfg.FixImports,
	}
}

// GenerateOptions converts the configuration into driver options.
func GenerateOptions(cfg config.Config, logger hclog.Logger) generate.Options {
	return generate.Options{
		Source:      SourceOptions(cfg),
		Strict:      cfg.Strict,
		Concurrency: cfg.Concurrency,
		Logger:      logger,
	}
}

// LoadFiles resolves the command arguments into source files.
func LoadFiles(ctx context.Context, cfg config.Config, args []string, logger hclog.Logger) ([]string, error) {
	files, err := loader.Load(ctx, loader.Config{
		Tag:    cfg.Tag,
		Suffix: cfg.Suffix,
		Logger: logger,
	}, args)
	if err != nil {
		return nil, fmt.Errorf("Error loading source files: %w", err)
	}
	return files, nil
}
