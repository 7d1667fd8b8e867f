// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"testing"
	"time"
)

// TestContext returns a context of t that is canceled when t completes. When
// t has a deadline, the context expires shortly before it, leaving time for
// cleanups to report what was running.
func TestContext(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	if d, ok := t.(interface{ Deadline() (time.Time, bool) }); ok {
		if deadline, ok := d.Deadline(); ok {
			cancel()
			ctx, cancel = context.WithDeadline(t.Context(), deadline.Add(-deadlineGrace))
		}
	}
	t.Cleanup(cancel)
	return ctx
}

const deadlineGrace = 5 * time.Second
