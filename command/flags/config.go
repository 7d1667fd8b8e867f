// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package flags

import (
	"flag"
	"fmt"

	"github.com/hashicorp/flakytest/internal/config"
)

// ConfigFlags are the settings shared by every command. Flags given on the
// command line override the configuration file.
type ConfigFlags struct {
	file string

	tag      StringValue
	suffix   StringValue
	async    BoolValue
	logLevel StringValue
	logJSON  BoolValue

	strict      BoolValue
	fixImports  BoolValue
	concurrency IntValue

	watchInterval DurationValue
}

// SourceFlags select the files to process and how to log.
func (f *ConfigFlags) SourceFlags() *flag.FlagSet {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.StringVar(&f.file, "config", "",
		fmt.Sprintf("Path to a configuration file in HCL or JSON format. Defaults to %s "+
			"in the current directory when present.", config.DefaultFile))
	fs.Var(&f.tag, "tag",
		"Build tag guarding source files. The generated file requires its negation. "+
			"Defaults to flakysrc.")
	fs.Var(&f.suffix, "suffix",
		"Suffix replacing _test.go in the names of generated files. "+
			"Defaults to _flakygen_test.go.")
	fs.Var(&f.async, "async",
		"Enable the async execution model for tests taking a context. Defaults to true.")
	fs.Var(&f.logLevel, "log-level",
		"Log level, one of trace, debug, info, warn or error. Defaults to info.")
	fs.Var(&f.logJSON, "log-json",
		"Output logs in JSON format.")
	return fs
}

// GenerateFlags control how outputs are produced.
func (f *ConfigFlags) GenerateFlags() *flag.FlagSet {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.Var(&f.strict, "strict",
		"Fail on invalid directives and skip writing the files carrying them.")
	fs.Var(&f.fixImports, "fix-imports",
		"Run goimports over generated files to add imports used by async options. "+
			"Defaults to true.")
	fs.Var(&f.concurrency, "concurrency",
		"Maximum number of files processed at once. Defaults to GOMAXPROCS.")
	return fs
}

// WatchFlags control the watch command.
func (f *ConfigFlags) WatchFlags() *flag.FlagSet {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.Var(&f.watchInterval, "interval",
		"How often modification times of watched files are compared, "+
			"catching changes missed by file system events. Defaults to 1s.")
	return fs
}

// Config loads the configuration file and overlays the flags that were
// set. The result is validated.
func (f *ConfigFlags) Config() (config.Config, error) {
	cfg, err := config.Load(f.file)
	if err != nil {
		return cfg, err
	}

	f.tag.Merge(&cfg.Tag)
	f.suffix.Merge(&cfg.Suffix)
	f.async.Merge(&cfg.Async)
	f.logLevel.Merge(&cfg.LogLevel)
	f.logJSON.Merge(&cfg.LogJSON)
	f.strict.Merge(&cfg.Strict)
	f.fixImports.Merge(&cfg.FixImports)
	f.concurrency.Merge(&cfg.Concurrency)
	f.watchInterval.Merge(&cfg.WatchInterval)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
