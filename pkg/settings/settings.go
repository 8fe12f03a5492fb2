// Package settings holds build metadata and the per-invocation parameters
// shared by the vmscope commands.
package settings

import (
	"fmt"
	"runtime"
)

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "vmscope"

// VersionInformation is set at build time via ldflags.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo describes the running build.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// String formats the build for the version command.
func (v VersionInfo) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime, runtime.Version())
}

// Sources names the files a run reads.
type Sources struct {
	// SettingsPath is the panel settings file, read at start and written
	// whenever the panel changes a setting.
	SettingsPath string
	// ExtrasPath is the optional extras bag shown under the Extras root.
	ExtrasPath  string
	WatchExtras bool
}

// Run holds the parameters of one command invocation.
type Run struct {
	MinLogLevel int8
	LogFile     string
	NoColor     bool
	Sources     Sources
}

// NewRun returns the parameters used when no flags were parsed.
func NewRun() *Run {
	return &Run{}
}
