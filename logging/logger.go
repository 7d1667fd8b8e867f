// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package logging

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
)

// Config is used to set up logging.
type Config struct {
	// LogLevel is the minimum level to be logged.
	LogLevel string

	// LogJSON controls outputing logs in a JSON format.
	LogJSON bool

	// Name is the name the returned logger will use to prefix log lines.
	Name string

	// Color is one of auto, on or off. It only applies to terminal output
	// and is ignored for JSON logs.
	Color string
}

// Setup returns a leveled logger writing to out. Commands pass a
// cli.UiWriter so log lines share the UI's error stream.
func Setup(config Config, out io.Writer) (hclog.Logger, error) {
	if !ValidateLogLevel(config.LogLevel) {
		return nil, fmt.Errorf("Invalid log level: %s. Valid log levels are: %v",
			config.LogLevel,
			allowedLogLevels)
	}

	color, err := NewColorOption(config.Color)
	if err != nil {
		return nil, err
	}
	if config.LogJSON {
		color = hclog.ColorOff
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Level:      LevelFromString(config.LogLevel),
		Name:       config.Name,
		Output:     out,
		JSONFormat: config.LogJSON,
		Color:      color,
	})
	return logger, nil
}
