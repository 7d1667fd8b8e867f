// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package config loads the flakytest configuration file.
//
// The file is HCL or JSON, for example:
//
//	tag         = "flakysrc"
//	suffix      = "_flakygen_test.go"
//	strict      = true
//	concurrency = 4
//	log_level   = "debug"
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl"
	"github.com/mitchellh/mapstructure"
)

// DefaultFile is read from the working directory when no file is given.
const DefaultFile = ".flakytest.hcl"

// Config holds the settings shared by every command.
type Config struct {
	// Tag is the build tag guarding source files.
	Tag string `mapstructure:"tag"`

	// Suffix names generated files.
	Suffix string `mapstructure:"suffix"`

	// Strict turns directive errors into command failures.
	Strict bool `mapstructure:"strict"`

	// Async enables the async execution model.
	Async bool `mapstructure:"async"`

	// FixImports runs goimports over generated files.
	FixImports bool `mapstructure:"fix_imports"`

	// Concurrency bounds the number of files processed at once.
	Concurrency int `mapstructure:"concurrency"`

	// WatchInterval is how often the watch command reconciles the files it
	// watches.
	WatchInterval time.Duration `mapstructure:"watch_interval"`

	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Tag:           "flakysrc",
		Suffix:        "_flakygen_test.go",
		Async:         true,
		FixImports:    true,
		Concurrency:   runtime.GOMAXPROCS(0),
		WatchInterval: time.Second,
		LogLevel:      "info",
	}
}

// Load returns the defaults overlaid with the file at path. An empty path
// loads DefaultFile when it exists.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !explicit:
		return cfg, nil
	default:
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := Decode(&cfg, string(data)); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays the HCL or JSON document in onto cfg.
func Decode(cfg *Config, in string) error {
	var raw map[string]interface{}
	if err := hcl.Decode(&raw, in); err != nil {
		return err
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Metadata:         &md,
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return err
	}
	return validateUnusedKeys(md.Unused)
}

func validateUnusedKeys(unused []string) error {
	if len(unused) == 0 {
		return nil
	}
	sort.Strings(unused)
	return fmt.Errorf("invalid config keys: %s", strings.Join(unused, ", "))
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var merr *multierror.Error
	if c.Tag == "" {
		merr = multierror.Append(merr, errors.New("tag must not be empty"))
	}
	if !strings.HasSuffix(c.Suffix, "_test.go") {
		merr = multierror.Append(merr, fmt.Errorf("suffix %q must end in _test.go", c.Suffix))
	}
	if c.Suffix == "_test.go" {
		merr = multierror.Append(merr, errors.New("suffix must not be _test.go"))
	}
	if c.Concurrency < 1 {
		merr = multierror.Append(merr, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.WatchInterval <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("watch_interval must be positive, got %s", c.WatchInterval))
	}
	return merr.ErrorOrNil()
}
