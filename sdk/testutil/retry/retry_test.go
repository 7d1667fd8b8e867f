// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// delta defines the time band a test run should complete in.
var delta = 25 * time.Millisecond

func TestRetryer(t *testing.T) {
	tests := []struct {
		desc string
		r    Retryer
	}{
		{"counter", &Counter{Count: 3, Wait: 100 * time.Millisecond}},
		{"timer", &Timer{Timeout: 200 * time.Millisecond, Wait: 100 * time.Millisecond}},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			var iters int
			start := time.Now()
			for tt.r.Continue() {
				iters++
			}
			dur := time.Since(start)
			if got, want := iters, 3; got != want {
				t.Fatalf("got %d retries want %d", got, want)
			}
			// since the first iteration happens immediately
			// the retryer waits only twice for three iterations.
			if got, want := dur, 200*time.Millisecond; got < (want-delta) || got > (want+delta) {
				t.Fatalf("loop took %v want %v (+/- %v)", got, want, delta)
			}
		})
	}
}

func TestCatch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ft := &fakeT{}
		res := Catch(ft, func(t *R) {
			t.Log("hello")
		})
		require.True(t, res.OK())
		require.False(t, res.Failed())
		require.Equal(t, []string{"hello"}, ft.logs)
		require.Zero(t, ft.fails)
	})

	t.Run("FailNow is contained", func(t *testing.T) {
		ft := &fakeT{}
		reached := false
		res := Catch(ft, func(t *R) {
			t.Fatalf("boom %d", 1)
			reached = true
		})
		require.False(t, reached)
		require.False(t, res.OK())
		require.True(t, res.Failed())
		require.False(t, res.Panicked())
		require.Len(t, res.Output(), 1)
		require.Contains(t, res.Output()[0], "retry_test.go:")
		require.Contains(t, res.Message(), "boom 1")
		require.Zero(t, ft.fails)
		require.Empty(t, ft.errors)
	})

	t.Run("Error keeps running", func(t *testing.T) {
		ft := &fakeT{}
		reached := false
		res := Catch(ft, func(t *R) {
			t.Error("first")
			reached = true
		})
		require.True(t, reached)
		require.True(t, res.Failed())
	})

	t.Run("panic is contained", func(t *testing.T) {
		ft := &fakeT{}
		err := errors.New("kaboom")
		res := Catch(ft, func(t *R) {
			panic(err)
		})
		require.True(t, res.Failed())
		require.True(t, res.Panicked())
		require.Equal(t, err, res.Value())
		require.Equal(t, "kaboom", res.Message())
	})

	t.Run("skip is forwarded", func(t *testing.T) {
		ft := &fakeT{}
		res := Catch(ft, func(t *R) {
			t.Skip("not today")
		})
		require.True(t, res.Skipped())
		require.False(t, res.OK())
		require.Equal(t, []string{"not today"}, ft.skips)
	})
}

func TestAttempt_Cleanup(t *testing.T) {
	var order []string
	res := NewAttempt(&fakeT{}).Run(func(t *R) {
		t.Cleanup(func() { order = append(order, "first") })
		t.Cleanup(func() { order = append(order, "second") })
		t.FailNow()
	})
	require.True(t, res.Failed())
	require.Equal(t, []string{"second", "first"}, order)

	res = NewAttempt(&fakeT{}).Run(func(t *R) {
		t.Cleanup(func() { panic("in cleanup") })
	})
	require.True(t, res.Failed())
	require.Contains(t, res.Message(), "cleanup panicked: in cleanup")
}

func TestAttempt_Abandon(t *testing.T) {
	ft := &fakeT{}
	a := NewAttempt(ft)
	res := a.Run(func(t *R) {
		t.Log("before")
		a.Abandon()
		t.Log("after")
	})
	require.True(t, res.OK())
	require.Equal(t, []string{"before"}, ft.logs)
}

func TestAttempt_AbandonWhileLogging(t *testing.T) {
	ft := &fakeT{}
	a := NewAttempt(ft)
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Run(func(t *R) {
			close(started)
			for i := 0; i < 1000; i++ {
				t.Logf("log %d", i)
			}
		})
	}()
	<-started
	a.Abandon()
	n := ft.logCount()
	wg.Wait()
	require.Equal(t, n, ft.logCount(), "parent called after Abandon returned")
}

func TestR_TestingTB(t *testing.T) {
	helper := func(tb testing.TB, msg string) {
		tb.Helper()
		tb.Error(msg)
	}
	res := Catch(t, func(r *R) {
		helper(r, "through testing.TB")
		require.NotEmpty(t, r.TempDir())
		require.NoError(t, r.Context().Err())
	})
	require.True(t, res.Failed())
	require.Contains(t, res.Message(), "through testing.TB")
}

func TestResult_Resume(t *testing.T) {
	t.Run("success does nothing", func(t *testing.T) {
		ft := &fakeT{}
		Result{}.Resume(ft)
		require.Zero(t, ft.fails)
	})

	t.Run("recorded failures are replayed", func(t *testing.T) {
		ft := &fakeT{}
		res := Catch(ft, func(t *R) {
			t.Error("same")
			t.Error("same")
			t.Error("other")
		})
		res.Resume(ft)
		require.Equal(t, 1, ft.fails)
		require.Len(t, ft.errors, 1)
		require.Contains(t, ft.errors[0], "same")
		require.Contains(t, ft.errors[0], "other")
	})

	t.Run("panic value is re-raised", func(t *testing.T) {
		ft := &fakeT{}
		val := fmt.Errorf("original")
		res := Catch(ft, func(t *R) {
			panic(val)
		})
		require.PanicsWithValue(t, val, func() {
			res.Resume(ft)
		})
	})

	t.Run("failure without output", func(t *testing.T) {
		ft := &fakeT{}
		Failure("").Resume(ft)
		require.Empty(t, ft.errors)
		require.Equal(t, 1, ft.fails)
	})

	t.Run("nested attempt keeps the original location", func(t *testing.T) {
		ft := &fakeT{}
		res := Catch(ft, func(t *R) {
			FlakyTestN(t, 2, func(t *R) {
				t.Fatal("inner")
			})
		})
		require.True(t, res.Failed())
		require.Len(t, res.Output(), 1)
		require.Regexp(t, `^retry_test\.go:\d+: inner$`, res.Message())
	})
}

func TestFlakyTestN(t *testing.T) {
	t.Run("passes after failures", func(t *testing.T) {
		ft := &fakeT{}
		calls := 0
		FlakyTestN(ft, 5, func(t *R) {
			calls++
			if calls < 3 {
				t.FailNow()
			}
		})
		require.Equal(t, 3, calls)
		require.Zero(t, ft.fails)
		require.Equal(t, []string{"flakytest retry 0", "flakytest retry 1", "flakytest retry 2"}, ft.logs)
	})

	t.Run("reports the last failure", func(t *testing.T) {
		ft := &fakeT{}
		calls := 0
		FlakyTestN(ft, 3, func(t *R) {
			calls++
			t.Fatalf("attempt %d", calls)
		})
		require.Equal(t, 3, calls)
		require.Equal(t, 1, ft.fails)
		require.Len(t, ft.errors, 1)
		require.Contains(t, ft.errors[0], "attempt 3")
		require.NotContains(t, ft.errors[0], "attempt 2")
	})

	t.Run("rejects zero attempts", func(t *testing.T) {
		ft := &fakeT{}
		FlakyTestN(ft, 0, func(t *R) {})
		require.NotEmpty(t, ft.errors)
	})
}

func TestFlakyTest_Default(t *testing.T) {
	ft := &fakeT{}
	calls := 0
	FlakyTest(ft, func(t *R) {
		calls++
		t.FailNow()
	})
	require.Equal(t, DefaultAttempts, calls)
	require.Equal(t, 1, ft.fails)
}

func TestShouldFail(t *testing.T) {
	t.Run("failure is expected", func(t *testing.T) {
		ft := &fakeT{}
		ShouldFail(ft, "boom", func(t *R) {
			FlakyTestN(t, 2, func(t *R) {
				t.Fatal("boom")
			})
		})
		require.Zero(t, ft.fails)
	})

	t.Run("panic is expected", func(t *testing.T) {
		ft := &fakeT{}
		ShouldFail(ft, "kaboom", func(t *R) {
			FlakyTestN(t, 2, func(t *R) {
				panic("kaboom")
			})
		})
		require.Zero(t, ft.fails)
	})

	t.Run("passing body fails", func(t *testing.T) {
		ft := &fakeT{}
		ShouldFail(ft, "", func(t *R) {})
		require.Equal(t, 1, ft.fails)
	})

	t.Run("wrong message fails", func(t *testing.T) {
		ft := &fakeT{}
		ShouldFail(ft, "expected", func(t *R) {
			t.Fatal("something else")
		})
		require.Equal(t, 1, ft.fails)
		require.Contains(t, ft.errors[0], "something else")
	})
}

type fakeT struct {
	mu     sync.Mutex
	fails  int
	failed bool
	errors []string
	logs   []string
	skips  []string
}

var _ T = &fakeT{}

func (f *fakeT) logCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.logs)
}

func (f *fakeT) Context() context.Context { return context.Background() }
func (f *fakeT) Setenv(key, value string) {}
func (f *fakeT) TempDir() string          { return "" }

func (f *fakeT) Cleanup(func())    {}
func (f *fakeT) Helper()           {}
func (f *fakeT) Name() string      { return "fakeT" }
func (f *fakeT) Parallel()         {}
func (f *fakeT) Fail()             { f.failed = true }
func (f *fakeT) Failed() bool      { return f.failed }
func (f *fakeT) SkipNow()          {}
func (f *fakeT) Skipped() bool     { return len(f.skips) > 0 }
func (f *fakeT) Log(args ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, fmt.Sprint(args...))
}

func (f *fakeT) Logf(format string, args ...interface{}) {
	f.Log(fmt.Sprintf(format, args...))
}

func (f *fakeT) Error(args ...interface{}) {
	f.errors = append(f.errors, fmt.Sprint(args...))
	f.failed = true
}

func (f *fakeT) Errorf(format string, args ...interface{}) {
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
	f.failed = true
}

func (f *fakeT) Fatal(args ...interface{}) {
	f.Error(args...)
	f.FailNow()
}

func (f *fakeT) Fatalf(format string, args ...interface{}) {
	f.Errorf(format, args...)
	f.FailNow()
}

func (f *fakeT) FailNow() {
	f.failed = true
	f.fails++
}

func (f *fakeT) Skip(args ...interface{}) {
	f.skips = append(f.skips, fmt.Sprint(args...))
}

func (f *fakeT) Skipf(format string, args ...interface{}) {
	f.skips = append(f.skips, fmt.Sprintf(format, args...))
}
