// SPDX-License-Identifier: MIT

// Package build carries the metadata stamped into the binary at link
// time: application name, build timestamp, git commit and semantic
// version. Release builds inject them with -ldflags; a plain source
// build keeps the placeholder values so the engine still runs.
package build

import "fmt"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Populated by -ldflags at link time.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string

	buildFlags = &ldFlags{
		Name:    "soundcheck",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "unknown",
	}
)

// Initialize copies the linker-injected values into the flag set. A
// missing flag means the binary was built without the release ldflags;
// callers decide whether that is fatal.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information: the injected
// values after a successful Initialize, the placeholders otherwise.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// Summary renders the one-line form shown by --version.
func (f *ldFlags) Summary() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
