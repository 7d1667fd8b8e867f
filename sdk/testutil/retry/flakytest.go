// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package retry

import "strings"

// DefaultAttempts is the number of attempts made when none is configured.
const DefaultAttempts = 3

// FlakyTest runs f up to DefaultAttempts times, stopping at the first attempt
// that succeeds. If every attempt fails, the failure of the last one is
// reported on t.
func FlakyTest(t T, f func(*R)) {
	t.Helper()
	FlakyTestN(t, DefaultAttempts, f)
}

// FlakyTestN is FlakyTest with an explicit number of attempts.
func FlakyTestN(t T, attempts int, f func(*R)) {
	t.Helper()
	if attempts < 1 {
		t.Fatalf("flakytest: attempts must be at least 1, got %d", attempts)
	}
	FlakyTestWith(t, &Counter{Count: attempts}, f)
}

// FlakyTestWith runs f for as long as r allows another attempt after a
// failure.
func FlakyTestWith(t T, r Retryer, f func(*R)) {
	t.Helper()
	var (
		res Result
		i   int
	)
	for r.Continue() {
		t.Logf("flakytest retry %d", i)
		res = Catch(t, f)
		if res.OK() {
			return
		}
		i++
	}
	if i == 0 {
		t.Fatal("flakytest: retryer allowed no attempts")
	}
	res.Resume(t)
}

// ShouldFail runs f and fails t unless f fails. When expected is not empty,
// the failure message must contain it.
func ShouldFail(t T, expected string, f func(*R)) {
	t.Helper()
	res := NewAttempt(t).Run(f)
	Settle(t, res)
	switch {
	case !res.Failed():
		t.Fatal("flakytest: test passed but was expected to fail")
	case expected != "" && !strings.Contains(res.Message(), expected):
		t.Fatalf("flakytest: test failed with %q, expected a failure containing %q", res.Message(), expected)
	default:
		t.Logf("flakytest: failed as expected: %s", res.Message())
	}
}
