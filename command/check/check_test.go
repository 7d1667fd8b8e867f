// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package check

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/flakytest/internal/directive"
)

func writeSource(t *testing.T, directiveLine string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "widget_test.go")
	src := "//go:build flakysrc\n\npackage widget\n\nimport \"testing\"\n\n" +
		directiveLine + "\nfunc TestWidget(t *testing.T) {}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestCheckCommand_noTabs(t *testing.T) {
	t.Parallel()
	if strings.ContainsRune(New(cli.NewMockUi()).Help(), '\t') {
		t.Fatal("help has tabs")
	}
}

func TestCheckCommand_Valid(t *testing.T) {
	path := writeSource(t, "//flaky:test times = 4")

	ui := cli.NewMockUi()
	require.Equal(t, 0, New(ui).Run([]string{"-no-color", path}), ui.ErrorWriter.String())
	require.Contains(t, ui.OutputWriter.String(), "Checked 1 annotated tests in 1 files, no errors")
	require.NoFileExists(t, strings.TrimSuffix(path, "_test.go")+"_flakygen_test.go")
}

func TestCheckCommand_Invalid(t *testing.T) {
	path := writeSource(t, "//flaky:test 0")

	ui := cli.NewMockUi()
	require.Equal(t, 1, New(ui).Run([]string{"-no-color", path}))

	out := ui.OutputWriter.String()
	require.Contains(t, out, path+":7:14: error: attempts must be a positive integer, found `0`\n")
	require.Contains(t, out, "\n  //flaky:test 0\n  "+strings.Repeat(" ", 13)+"^\n")
	require.Contains(t, out, "  expected `<int>`")
	require.Contains(t, ui.ErrorWriter.String(), "Found 1 invalid directives in 1 annotated tests")
}

func TestCheckCommand_UnknownOption(t *testing.T) {
	path := writeSource(t, "//flaky:test retries = 2")

	ui := cli.NewMockUi()
	require.Equal(t, 1, New(ui).Run([]string{"-no-color", path}))
	require.Contains(t, ui.OutputWriter.String(), "unknown option `retries`")
	require.Contains(t, ui.OutputWriter.String(), "\n  "+strings.Repeat(" ", 13)+"^^^^^^^\n")
}

func TestPrinter_MissingSource(t *testing.T) {
	p := newPrinter(true)
	err := &directive.ConfigError{
		Msg:      "unknown option `x`",
		Expected: "expected `<int>` or `times = <int>`",
	}
	err.Pos.Filename = filepath.Join(t.TempDir(), "gone_test.go")
	err.Pos.Line = 3
	err.Pos.Column = 14

	out := p.diagnostic(err)
	require.Equal(t, err.Pos.String()+": error: unknown option `x`\n  expected `<int>` or `times = <int>`", out)
}
