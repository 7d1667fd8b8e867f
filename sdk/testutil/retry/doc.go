// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package retry provides the runtime used by tests that tolerate a bounded
// number of flaky failures.
//
// The flakytest generator rewrites a test annotated with //flaky:test into a
// loop over Catch:
//
//	func TestX(t *testing.T) {
//	    flakyTestX := func(t *retry.R) {
//	        if err := foo(); err != nil {
//	            t.Fatal("foo: ", err)
//	        }
//	    }
//	    for i := 0; i < 3; i++ {
//	        t.Logf("flakytest retry %d", i)
//	        r := retry.Catch(t, flakyTestX)
//	        if r.OK() {
//	            return
//	        }
//	        if i == 3-1 {
//	            r.Resume(t)
//	        }
//	    }
//	}
//
// Tests that are not generated can call FlakyTest or FlakyTestWith directly.
//
// *R is a testing.TB, so helpers taking a testing.TB accept it. Helpers
// taking a *testing.T do not, and neither *testing.T.Run nor Deadline is
// available to an attempt.
//
// WARNING: unlike *testing.T, Fatal and FailNow on the *R handed to an
// attempt *do not* fail the test function, only the current attempt.
package retry
