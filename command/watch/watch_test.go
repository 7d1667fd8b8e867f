// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package watch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const widgetSource = `//go:build flakysrc

package widget

import "testing"

//flaky:test 2
func TestWidget(t *testing.T) {}
`

func TestWatchCommand_noTabs(t *testing.T) {
	t.Parallel()
	if strings.ContainsRune(New(cli.NewMockUi(), nil).Help(), '\t') {
		t.Fatal("help has tabs")
	}
}

func TestWatchCommand_NoFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain_test.go")
	require.NoError(t, os.WriteFile(path, []byte("package plain\n"), 0o644))

	ui := cli.NewMockUi()
	require.Equal(t, 1, New(ui, nil).Run([]string{path}))
	require.Contains(t, ui.ErrorWriter.String(), "No files with flakytest directives found")
}

func TestWatchCommand_Regenerates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widget_test.go")
	output := strings.TrimSuffix(path, "_test.go") + "_flakygen_test.go"
	require.NoError(t, os.WriteFile(path, []byte(widgetSource), 0o644))

	ui := cli.NewMockUi()
	shutdownCh := make(chan struct{})
	codeCh := make(chan int, 1)
	go func() {
		codeCh <- New(ui, shutdownCh).Run([]string{"-fix-imports=false", "-interval=50ms", path})
	}()

	contains := func(s string) func() bool {
		return func() bool {
			out, err := os.ReadFile(output)
			return err == nil && strings.Contains(string(out), s)
		}
	}
	require.Eventually(t, contains("i < 2"), 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		return strings.Contains(ui.OutputWriter.String(), "Watching 1 files for changes")
	}, 5*time.Second, 20*time.Millisecond)

	changed := strings.Replace(widgetSource, "//flaky:test 2", "//flaky:test 7", 1)
	require.NoError(t, os.WriteFile(path, []byte(changed), 0o644))
	require.Eventually(t, contains("i < 7"), 5*time.Second, 20*time.Millisecond)

	close(shutdownCh)
	select {
	case code := <-codeCh:
		require.Equal(t, 0, code, ui.ErrorWriter.String())
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
