// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package async is the entry point for retried tests whose body takes a
// context.Context. Each attempt runs on its own goroutine and is awaited
// before the next one starts.
package async

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/flakytest/sdk/testutil/retry"
)

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	ctx      context.Context
	timeout  time.Duration
	parallel bool
}

// WithTimeout bounds the whole test, all attempts included. Once it expires
// no further attempt starts and the running one is abandoned.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// WithContext replaces the parent context of the test.
func WithContext(ctx context.Context) Option {
	return func(c *runConfig) {
		c.ctx = ctx
	}
}

// Parallel marks the test as parallel before the first attempt.
func Parallel() Option {
	return func(c *runConfig) {
		c.parallel = true
	}
}

// Run derives the context of the test and calls body with it on the calling
// goroutine. Without WithContext the context is the one of t.
func Run(t retry.T, body func(ctx context.Context, t retry.T), opts ...Option) {
	t.Helper()
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.parallel {
		t.Parallel()
	}

	ctx := cfg.ctx
	if ctx == nil {
		ctx = t.Context()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}
	body(ctx, t)
}

// Await runs f as one attempt of t on a new goroutine and waits for it to
// complete or for ctx to be done, whichever happens first. An attempt is not
// started when ctx is already done.
func Await(ctx context.Context, t retry.T, f func(context.Context, *retry.R)) retry.Result {
	t.Helper()
	if err := ctx.Err(); err != nil {
		return retry.Failure(fmt.Sprintf("flakytest: attempt not started: %v", err))
	}

	a := retry.NewAttempt(t)
	done := make(chan retry.Result, 1)
	go func() {
		res := retry.Failure("flakytest: attempt exited without completing")
		defer func() { done <- res }()
		res = a.Run(func(r *retry.R) {
			f(ctx, r)
		})
	}()

	var res retry.Result
	select {
	case res = <-done:
	case <-ctx.Done():
		select {
		case res = <-done:
		default:
			a.Abandon()
			res = retry.Failure(fmt.Sprintf("flakytest: attempt abandoned: %v", ctx.Err()))
		}
	}
	retry.Settle(t, res)
	return res
}
