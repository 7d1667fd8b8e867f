// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package retry

import "time"

// Retryer decides whether another attempt of a failing test is made.
type Retryer interface {
	// Continue returns true if the test should be attempted again, otherwise
	// it returns false to indicate retrying should stop.
	Continue() bool
}

// Counter allows a fixed number of attempts and waits between subsequent
// attempts.
type Counter struct {
	Count int
	Wait  time.Duration

	count int
}

func (r *Counter) Continue() bool {
	if r.count == r.Count {
		return false
	}
	if r.count > 0 {
		time.Sleep(r.Wait)
	}
	r.count++
	return true
}

// Timer allows attempts for a given amount of time and waits between
// subsequent attempts. The first attempt is always made.
type Timer struct {
	Timeout time.Duration
	Wait    time.Duration

	// stop is the timeout deadline.
	// Set on the first invocation of Continue().
	stop time.Time
}

func (r *Timer) Continue() bool {
	if r.stop.IsZero() {
		r.stop = time.Now().Add(r.Timeout)
		return true
	}
	if time.Now().After(r.stop) {
		return false
	}
	time.Sleep(r.Wait)
	return true
}
