// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

var (
	// The git commit that was compiled. These will be filled in by the
	// compiler.
	GitCommit string

	// The main version number that is being run at the moment.
	//
	// Version must conform to the format expected by
	// github.com/hashicorp/go-version for tests to work.
	Version = "0.3.0"

	// A pre-release marker for the version. If this is "" (empty string)
	// then it means that it is a final release. Otherwise, this is a pre-release
	// such as "dev" (in development), "beta", "rc1", etc.
	VersionPrerelease = "dev"

	// The date/time of the build (actually the HEAD commit in git, to preserve stability)
	// This isn't just informational, but is also used by the license module for
	// release date validation.
	BuildDate = ""
)

func init() {
	if GitCommit != "" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			GitCommit = s.Value
		case "vcs.time":
			if BuildDate == "" {
				BuildDate = s.Value
			}
		}
	}
}

// GetHumanVersion composes the parts of the version in a way that's suitable
// for displaying to humans.
func GetHumanVersion() string {
	version := Version
	release := VersionPrerelease

	if release != "" {
		suffix := "-" + release
		if !strings.HasSuffix(version, suffix) {
			// if we tagged a prerelease version then the release is in the version already
			version += suffix
		}
	}

	// Strip off any single quotes added by the git information.
	return "v" + strings.ReplaceAll(version, "'", "")
}

// Info returns the multi-line description printed by the version command.
func Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "flakytest %s\n", GetHumanVersion())
	if GitCommit != "" {
		fmt.Fprintf(&b, "Revision %s\n", GitCommit)
	}
	if BuildDate != "" {
		fmt.Fprintf(&b, "Build Date %s\n", BuildDate)
	}
	return b.String()
}
