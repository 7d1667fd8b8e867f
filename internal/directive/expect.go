// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package directive

import (
	"fmt"
	"go/token"
	"strconv"
	"strings"
)

// Expectation is a parsed //flaky:should-fail marker: the test passes only if
// its final attempt fails, with a message containing Substring when set.
type Expectation struct {
	Substring string
}

// ParseExpectation parses a failure expectation marker located at pos.
func ParseExpectation(comment string, pos token.Position) (*Expectation, error) {
	if !IsShouldFail(comment) {
		return nil, &ConfigError{
			Pos: pos,
			End: len(comment),
			Msg: fmt.Sprintf("not a %s marker", ShouldFailPrefix),
		}
	}
	rest := comment[len(ShouldFailPrefix):]
	arg := strings.TrimSpace(rest)
	if arg == "" {
		return &Expectation{}, nil
	}

	off := strings.Index(rest, arg)
	s, err := strconv.Unquote(arg)
	if err != nil {
		return nil, locate(&ConfigError{
			Offset:   off,
			End:      off + len(arg),
			Msg:      fmt.Sprintf("invalid expected failure message %s", arg),
			Expected: "expected `" + ShouldFailPrefix + "` or `" + ShouldFailPrefix + " \"<substring>\"`",
		}, pos, len(ShouldFailPrefix))
	}
	return &Expectation{Substring: s}, nil
}
