// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package retry

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	testinginterface "github.com/mitchellh/go-testing-interface"
)

// T is the test an attempt reports to. *testing.T and *R both satisfy it.
type T interface {
	testinginterface.T

	Context() context.Context
	Setenv(key, value string)
	TempDir() string
}

// attemptFailed and attemptSkipped unwind an attempt after FailNow or
// SkipNow. They are distinct types so a test panicking with an arbitrary
// value is never mistaken for either.
type (
	attemptFailed  struct{}
	attemptSkipped struct{}
)

// R is the test seen by a single attempt. Failures are recorded instead of
// being reported to the parent test, so the caller can decide whether to
// discard them or replay them.
//
// R is a testing.TB. Methods it does not define are those of the parent, and
// are only available when the parent is itself a testing.TB.
type R struct {
	testing.TB

	parent T

	fail     bool
	skipped  bool
	output   []string
	skip     []string
	cleanups []func()

	// abandoned is set when the caller stopped waiting for the attempt.
	// Calls reaching the parent are dropped from then on, since the parent
	// test may already have completed. mu is held across the check and the
	// call so that no call reaches the parent after Abandon returns.
	mu        sync.Mutex
	abandoned bool
}

var (
	_ T          = (*R)(nil)
	_ testing.TB = (*R)(nil)
)

// toParent runs f with the parent unless the attempt was abandoned, and
// reports whether it did.
func (r *R) toParent(f func(T)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return false
	}
	f(r.parent)
	return true
}

func (r *R) Helper() {}

func (r *R) Name() string {
	return r.parent.Name()
}

// Parallel is a no-op: attempts of the same test never run concurrently.
func (r *R) Parallel() {}

func (r *R) Fail() {
	r.fail = true
}

func (r *R) Failed() bool {
	return r.fail
}

func (r *R) FailNow() {
	r.fail = true
	panic(attemptFailed{})
}

func (r *R) Fatal(args ...interface{}) {
	r.log(fmt.Sprint(args...))
	r.FailNow()
}

func (r *R) Fatalf(format string, args ...interface{}) {
	r.log(fmt.Sprintf(format, args...))
	r.FailNow()
}

func (r *R) Error(args ...interface{}) {
	r.log(fmt.Sprint(args...))
	r.fail = true
}

func (r *R) Errorf(format string, args ...interface{}) {
	r.log(fmt.Sprintf(format, args...))
	r.fail = true
}

func (r *R) Log(args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return
	}
	r.parent.Helper()
	r.parent.Log(args...)
}

func (r *R) Logf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return
	}
	r.parent.Helper()
	r.parent.Logf(format, args...)
}

func (r *R) Skip(args ...interface{}) {
	r.skip = append(r.skip, fmt.Sprint(args...))
	r.SkipNow()
}

func (r *R) Skipf(format string, args ...interface{}) {
	r.skip = append(r.skip, fmt.Sprintf(format, args...))
	r.SkipNow()
}

func (r *R) SkipNow() {
	r.skipped = true
	panic(attemptSkipped{})
}

func (r *R) Skipped() bool {
	return r.skipped
}

// Cleanup registers f to run when the current attempt completes. Cleanups run
// in last added, first called order.
func (r *R) Cleanup(f func()) {
	r.cleanups = append(r.cleanups, f)
}

// Context returns the context of the parent test.
func (r *R) Context() context.Context {
	var ctx context.Context
	if r.toParent(func(t T) { ctx = t.Context() }) && ctx != nil {
		return ctx
	}
	return context.Background()
}

// TempDir returns a directory owned by the parent test. Once the attempt is
// abandoned the directory is removed when the attempt completes instead.
func (r *R) TempDir() string {
	var dir string
	if r.toParent(func(t T) { dir = t.TempDir() }) {
		return dir
	}
	dir, err := os.MkdirTemp("", "flakytest")
	if err != nil {
		r.Fatalf("TempDir: %v", err)
	}
	r.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// Setenv sets an environment variable for the rest of the test. Once the
// attempt is abandoned the previous value is restored when the attempt
// completes instead.
func (r *R) Setenv(key, value string) {
	if r.toParent(func(t T) { t.Setenv(key, value) }) {
		return
	}
	prev, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		r.Fatalf("Setenv: %v", err)
	}
	r.Cleanup(func() {
		if had {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

func (r *R) log(s string) {
	r.output = append(r.output, decorate(s))
}

// replay records output of a nested attempt, already decorated, and fails
// the attempt.
func (r *R) replay(out string) {
	r.output = append(r.output, out)
	r.fail = true
}

func (r *R) runCleanups() {
	for len(r.cleanups) > 0 {
		f := r.cleanups[len(r.cleanups)-1]
		r.cleanups = r.cleanups[:len(r.cleanups)-1]
		func() {
			defer func() {
				if p := recover(); p != nil {
					switch p.(type) {
					case attemptFailed, attemptSkipped:
					default:
						r.output = append(r.output, fmt.Sprintf("cleanup panicked: %v", p))
						r.fail = true
					}
				}
			}()
			f()
		}()
	}
}

// Attempt is a single isolated execution of a test body.
type Attempt struct {
	r *R
}

// NewAttempt prepares an attempt whose logs are forwarded to t.
func NewAttempt(t T) *Attempt {
	tb, _ := t.(testing.TB)
	return &Attempt{r: &R{TB: tb, parent: t}}
}

// Abandon stops the attempt from reaching its parent test. It is safe to call
// from another goroutine while Run is executing. Once Abandon returns, the
// parent is no longer called.
func (a *Attempt) Abandon() {
	a.r.mu.Lock()
	defer a.r.mu.Unlock()
	a.r.abandoned = true
}

// Run executes f once, recovering FailNow, SkipNow and panics. Cleanups
// registered during the attempt have run by the time Run returns.
func (a *Attempt) Run(f func(*R)) (res Result) {
	r := a.r
	defer func() {
		p := recover()
		r.runCleanups()
		switch p.(type) {
		case nil, attemptFailed, attemptSkipped:
			res = Result{
				failed:  r.fail,
				skipped: r.skipped && !r.fail,
				output:  r.output,
				skip:    r.skip,
			}
		default:
			res = Result{
				failed:   true,
				panicked: true,
				value:    p,
				output:   r.output,
			}
		}
	}()
	f(r)
	return
}

// Catch runs f as one attempt of t and returns its outcome. A skipped attempt
// skips t.
func Catch(t T, f func(*R)) Result {
	t.Helper()
	res := NewAttempt(t).Run(f)
	Settle(t, res)
	return res
}

// Settle forwards a skipped attempt to t.
func Settle(t T, res Result) {
	t.Helper()
	if !res.skipped {
		return
	}
	if msg := strings.Join(res.skip, "\n"); msg != "" {
		t.Skip(msg)
	}
	t.SkipNow()
}

// Failure returns a failed Result carrying msg, for attempts that could not
// run to completion.
func Failure(msg string) Result {
	if msg == "" {
		return Result{failed: true}
	}
	return Result{failed: true, output: []string{msg}}
}

// Result is the outcome of one attempt.
type Result struct {
	failed   bool
	panicked bool
	skipped  bool
	value    interface{}
	output   []string
	skip     []string
}

// OK reports whether the attempt completed without failing or skipping.
func (r Result) OK() bool {
	return !r.failed && !r.skipped
}

func (r Result) Failed() bool {
	return r.failed
}

// Panicked reports whether the attempt ended with a panic other than FailNow.
func (r Result) Panicked() bool {
	return r.panicked
}

func (r Result) Skipped() bool {
	return r.skipped
}

// Value returns the recovered panic value.
func (r Result) Value() interface{} {
	return r.value
}

// Output returns the failure messages recorded by the attempt.
func (r Result) Output() []string {
	return r.output
}

// Message describes the failure: the panic value when the attempt panicked,
// the recorded messages otherwise.
func (r Result) Message() string {
	out := strings.TrimSuffix(dedup(r.output), "\n")
	if !r.panicked {
		return out
	}
	msg := fmt.Sprint(r.value)
	if out != "" {
		msg = out + "\n" + msg
	}
	return msg
}

// Resume re-raises the failure on t: a panic is re-panicked with the same
// value, recorded failures are reported through t.Error followed by
// t.FailNow. Resume does nothing for a successful attempt.
//
// When t is itself an attempt the recorded failures are kept as they are, so
// they still point at the code that reported them.
func (r Result) Resume(t T) {
	t.Helper()
	if !r.failed {
		return
	}
	out := strings.TrimSuffix(dedup(r.output), "\n")
	if r.panicked {
		if out != "" {
			t.Log(out)
		}
		panic(r.value)
	}
	if out != "" {
		if nested, ok := t.(*R); ok {
			nested.replay(out)
		} else {
			t.Error(out)
		}
	}
	t.FailNow()
}
