// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

//go:build flakytest_noasync

package synth

import (
	"github.com/dave/dst"

	"github.com/hashicorp/flakytest/internal/directive"
)

const asyncSupported = false

func expandAsync(_ directive.Config, decl Declaration) (*dst.FuncDecl, error) {
	return nil, decl.errorf("`async` is not supported by this build of flakytest")
}
