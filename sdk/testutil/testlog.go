// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
)

var sendTestLogsToStdout bool

func init() {
	sendTestLogsToStdout = os.Getenv("NOLOGBUFFER") == "1"
}

// Logger returns a trace level logger whose lines are attached to t, so
// they only show up for failing or verbose tests. Set NOLOGBUFFER=1 to
// stream them to stdout instead.
func Logger(t testing.TB) hclog.Logger {
	var output io.Writer = os.Stdout
	if !sendTestLogsToStdout {
		output = &testWriter{t: t}
	}
	return LoggerWithOutput(t, output)
}

func LoggerWithOutput(t testing.TB, output io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       t.Name(),
		Level:      hclog.Trace,
		Output:     output,
		TimeFormat: "04:05.000",
	})
}

// testWriter forwards log lines to t.Log until the test completes. Lines
// written afterwards, for example by a goroutine that outlived the test,
// are dropped because t.Log would panic.
type testWriter struct {
	t    testing.TB
	once sync.Once
	mu   sync.Mutex
	done bool
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		w.t.Cleanup(func() {
			w.mu.Lock()
			w.done = true
			w.mu.Unlock()
		})
	})
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.done {
		w.t.Helper()
		w.t.Log(strings.TrimSuffix(string(p), "\n"))
	}
	return len(p), nil
}
