// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package flags

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStringValue(t *testing.T) {
	var v StringValue
	out := "unchanged"
	v.Merge(&out)
	require.Equal(t, "unchanged", out)
	require.Equal(t, "", v.String())

	require.NoError(t, v.Set("flakysrc"))
	v.Merge(&out)
	require.Equal(t, "flakysrc", out)
}

func TestBoolValue(t *testing.T) {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	var set, unset BoolValue
	fs.Var(&set, "set", "")
	fs.Var(&unset, "unset", "")
	require.NoError(t, fs.Parse([]string{"-set"}))

	a, b := false, true
	set.Merge(&a)
	unset.Merge(&b)
	require.True(t, a)
	require.True(t, b)

	require.Error(t, set.Set("maybe"))
}

func TestIntValue(t *testing.T) {
	var v IntValue
	require.Error(t, v.Set("four"))
	require.NoError(t, v.Set("4"))

	n := 1
	v.Merge(&n)
	require.Equal(t, 4, n)
	require.Equal(t, "4", v.String())
}

func TestDurationValue(t *testing.T) {
	var v DurationValue
	d := time.Second
	v.Merge(&d)
	require.Equal(t, time.Second, d)

	require.NoError(t, v.Set("250ms"))
	v.Merge(&d)
	require.Equal(t, 250*time.Millisecond, d)
}

func TestMerge(t *testing.T) {
	dst := flag.NewFlagSet("", flag.ContinueOnError)
	var f ConfigFlags
	Merge(dst, f.SourceFlags())
	Merge(dst, nil)

	require.NotNil(t, dst.Lookup("tag"))
	require.NotNil(t, dst.Lookup("log-level"))
	require.Nil(t, dst.Lookup("strict"))
}

func TestUsage(t *testing.T) {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	var f ConfigFlags
	Merge(fs, f.SourceFlags())

	out := Usage("\nUsage: flakytest test [options]\n\n  Does things.\n", fs)
	require.True(t, strings.HasPrefix(out, "Usage: flakytest test [options]"))
	require.Contains(t, out, "Command Options")
	require.Contains(t, out, "  -config=<string>\n")
	require.Contains(t, out, "  -log-json\n")
	require.NotContains(t, out, "\t")
	for _, line := range strings.Split(out, "\n") {
		require.LessOrEqual(t, len(line), maxLineLength, line)
	}
}

func TestUsage_NoFlags(t *testing.T) {
	out := Usage("Usage: flakytest version", nil)
	require.Equal(t, "Usage: flakytest version", out)
}

func TestConfigFlags_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flakytest.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
tag = "fromfile"
strict = true
concurrency = 2
`), 0o644))

	var f ConfigFlags
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	Merge(fs, f.SourceFlags())
	Merge(fs, f.GenerateFlags())
	Merge(fs, f.WatchFlags())
	require.NoError(t, fs.Parse([]string{"-config", path, "-concurrency=8", "-interval=5s"}))

	cfg, err := f.Config()
	require.NoError(t, err)
	require.Equal(t, "fromfile", cfg.Tag)
	require.True(t, cfg.Strict)
	require.Equal(t, 8, cfg.Concurrency)
	require.Equal(t, 5*time.Second, cfg.WatchInterval)
	require.Equal(t, "_flakygen_test.go", cfg.Suffix)
}

func TestConfigFlags_Invalid(t *testing.T) {
	var f ConfigFlags
	fs := f.GenerateFlags()
	require.NoError(t, fs.Parse([]string{"-concurrency=0"}))

	_, err := f.Config()
	require.ErrorContains(t, err, "concurrency must be at least 1")
}
