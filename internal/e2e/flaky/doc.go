// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package flaky holds retried tests used to check generated code end to end.
// flaky_test.go is the source; flaky_flakygen_test.go is generated from it.
package flaky

//go:generate go run github.com/hashicorp/flakytest generate -fix-imports=false .
