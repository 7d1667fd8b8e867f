// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package helpers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/flakytest/internal/config"
	"github.com/hashicorp/flakytest/internal/synth"
)

func TestLogger_WritesToErrorStream(t *testing.T) {
	ui := cli.NewMockUi()
	cfg := config.Default()

	logger, err := Logger(ui, cfg)
	require.NoError(t, err)
	logger.Info("generated", "file", "widget_flakygen_test.go")

	require.Empty(t, ui.OutputWriter.String())
	require.Contains(t, ui.ErrorWriter.String(), "[INFO]  flakytest: generated: file=widget_flakygen_test.go")
}

func TestLogger_InvalidLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "loud"

	_, err := Logger(cli.NewMockUi(), cfg)
	require.ErrorContains(t, err, "Invalid log level: loud")
}

func TestSourceOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Tag = "flaky"
	cfg.Suffix = "_gen_test.go"
	cfg.FixImports = false

	opts := SourceOptions(cfg)
	require.Equal(t, "flaky", opts.Tag)
	require.Equal(t, "_gen_test.go", opts.Suffix)
	require.False(t, opts.FixImports)
	require.Equal(t, synth.Features().Async, opts.Features.Async)

	cfg.Async = false
	require.False(t, SourceOptions(cfg).Features.Async)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widget_test.go")
	require.NoError(t, os.WriteFile(path, []byte("//go:build flakysrc\n\npackage widget\n\n//flaky:test\nfunc TestWidget(t *testing.T) {}\n"), 0o644))

	files, err := LoadFiles(context.Background(), config.Default(), []string{path}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{path}, files)

	_, err = LoadFiles(context.Background(), config.Default(), []string{filepath.Join(dir, "missing_test.go")}, nil)
	require.ErrorContains(t, err, "Error loading source files")
}
