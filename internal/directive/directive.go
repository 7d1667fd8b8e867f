// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package directive parses the //flaky:test comment directive that marks a
// test function for retrying.
//
// The directive arguments are a comma separated list of items, any of
//
//	5                       attempts, as a positive integer literal
//	times = 5               attempts, named
//	async                   run the test body through the async runtime
//	async(opt, ...)         same, passing Go expressions as options
//
// Items may appear in any order and a later item overrides an earlier one of
// the same kind. With no arguments a test is attempted DefaultAttempts times
// on the test goroutine.
package directive

import (
	"fmt"
	"go/token"
	"strings"
)

const (
	// Prefix starts a retry directive.
	Prefix = "//flaky:test"

	// ShouldFailPrefix starts a failure expectation marker.
	ShouldFailPrefix = "//flaky:should-fail"

	// DefaultAttempts is used when the directive does not set a count.
	DefaultAttempts = 3
)

// Model selects how the attempts of a test are executed.
type Model int

const (
	// Sync runs every attempt on the test goroutine.
	Sync Model = iota
	// Async runs every attempt on its own goroutine, awaited by the test.
	Async
)

func (m Model) String() string {
	switch m {
	case Sync:
		return "sync"
	case Async:
		return "async"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// Features are the execution models available to the parser.
type Features struct {
	Async bool
}

// Config is the parsed form of a directive.
type Config struct {
	// Attempts is the maximum number of times the test body runs. Always at
	// least 1.
	Attempts int

	Model Model

	// AsyncOptions holds the verbatim source of each option expression of an
	// async(...) item. It is nil when the item has no parentheses.
	AsyncOptions []string
}

// Default returns the configuration of a directive without arguments.
func Default() Config {
	return Config{Attempts: DefaultAttempts, Model: Sync}
}

// ConfigError reports a directive that cannot be honoured.
type ConfigError struct {
	// Pos is the source position of the start of the offending span. It is
	// the zero Position when the directive text was parsed on its own.
	Pos token.Position

	// Offset and End delimit the offending span in bytes, relative to the
	// start of the directive arguments.
	Offset, End int

	Msg string

	// Expected lists the accepted forms, when relevant.
	Expected string
}

func (e *ConfigError) Error() string {
	msg := e.Message()
	if e.Pos.IsValid() {
		return e.Pos.String() + ": " + msg
	}
	return msg
}

// Message is the error text without the position.
func (e *ConfigError) Message() string {
	if e.Expected == "" {
		return e.Msg
	}
	return e.Msg + "; " + e.Expected
}

// ExpectedForms describes the accepted directive items.
func ExpectedForms(features Features) string {
	if features.Async {
		return "expected `<int>`, `times = <int>` or `async`"
	}
	return "expected `<int>` or `times = <int>`"
}

// HasDirective reports whether the comment text is a retry directive.
func HasDirective(comment string) bool {
	return hasPrefix(comment, Prefix)
}

// IsShouldFail reports whether the comment text is a failure expectation
// marker.
func IsShouldFail(comment string) bool {
	return hasPrefix(comment, ShouldFailPrefix)
}

func hasPrefix(comment, prefix string) bool {
	if !strings.HasPrefix(comment, prefix) {
		return false
	}
	rest := comment[len(prefix):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// ParseComment parses a full directive comment located at pos.
func ParseComment(comment string, pos token.Position, features Features) (Config, error) {
	if !HasDirective(comment) {
		return Config{}, &ConfigError{
			Pos: pos,
			End: len(comment),
			Msg: fmt.Sprintf("not a %s directive", Prefix),
		}
	}
	cfg, err := Parse(comment[len(Prefix):], features)
	if err != nil {
		return Config{}, locate(err, pos, len(Prefix))
	}
	return cfg, nil
}

// locate makes the span of a ConfigError absolute. Directives are single
// line comments, so only the column and offset move.
func locate(err error, pos token.Position, base int) error {
	cerr, ok := err.(*ConfigError)
	if !ok || !pos.IsValid() {
		return err
	}
	cerr.Pos = token.Position{
		Filename: pos.Filename,
		Offset:   pos.Offset + base + cerr.Offset,
		Line:     pos.Line,
		Column:   pos.Column + base + cerr.Offset,
	}
	return cerr
}
