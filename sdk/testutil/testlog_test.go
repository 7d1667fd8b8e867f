// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerWithOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggerWithOutput(t, &buf)

	logger.Trace("starting", "file", "widget_test.go")
	require.Contains(t, buf.String(), "[TRACE] TestLoggerWithOutput: starting: file=widget_test.go")
}

func TestLogger_AfterCleanup(t *testing.T) {
	var logger interface{ Info(string, ...interface{}) }
	t.Run("sub", func(t *testing.T) {
		logger = Logger(t)
		logger.Info("during")
	})
	// The subtest has completed, so this must not reach its t.Log.
	logger.Info("after")
}

func TestContext_CanceledOnCleanup(t *testing.T) {
	var done <-chan struct{}
	t.Run("sub", func(t *testing.T) {
		ctx := TestContext(t)
		done = ctx.Done()
		require.NoError(t, ctx.Err())
	})
	select {
	case <-done:
	default:
		t.Fatal("context was not canceled")
	}
}

func TestContext_Deadline(t *testing.T) {
	ctx := TestContext(t)
	want, ok := t.Deadline()
	got, hasDeadline := ctx.Deadline()
	require.Equal(t, ok, hasDeadline)
	if ok {
		require.Equal(t, want.Add(-deadlineGrace), got)
	}
}
