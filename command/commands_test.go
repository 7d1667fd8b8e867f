// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"sort"
	"strings"
	"testing"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	ui := cli.NewMockUi()
	cmds := Commands(ui)

	var names []string
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	require.Equal(t, []string{"check", "generate", "list", "version", "watch"}, names)

	for _, name := range names {
		if name == "watch" {
			// The watch factory installs a signal handler.
			continue
		}
		t.Run(name, func(t *testing.T) {
			c, err := cmds[name]()
			require.NoError(t, err)
			require.NotEmpty(t, c.Synopsis())
			require.True(t, strings.HasPrefix(c.Help(), "Usage: flakytest "+name), c.Help())
		})
	}
}
