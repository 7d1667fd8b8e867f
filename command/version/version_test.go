// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package version

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/flakytest/internal/synth"
	"github.com/hashicorp/flakytest/version"
)

func TestVersionCommand_noTabs(t *testing.T) {
	t.Parallel()
	if strings.ContainsRune(New(cli.NewMockUi()).Help(), '\t') {
		t.Fatal("help has tabs")
	}
}

func TestVersionCommand_Pretty(t *testing.T) {
	ui := cli.NewMockUi()
	require.Equal(t, 0, New(ui).Run(nil))
	require.True(t, strings.HasPrefix(ui.OutputWriter.String(), "flakytest "+version.GetHumanVersion()+"\n"))
}

func TestVersionCommand_JSON(t *testing.T) {
	ui := cli.NewMockUi()
	require.Equal(t, 0, New(ui).Run([]string{"-format=json"}))

	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(ui.OutputWriter.String()), &info))
	require.Equal(t, version.GetHumanVersion(), info.Version)
	require.Equal(t, synth.Features().Async, info.Async)
}

func TestVersionCommand_InvalidFormat(t *testing.T) {
	ui := cli.NewMockUi()
	require.Equal(t, 1, New(ui).Run([]string{"-format=xml"}))
	require.Contains(t, ui.ErrorWriter.String(), "Invalid format")
}
