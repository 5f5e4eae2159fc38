// Package version reports the build identity of the retrieverctl binary,
// so that an index built by one binary can be matched back to the
// release that produced it when diagnosing a support report.
package version

import (
	"fmt"
	"runtime"
)

// Version is the release tag this binary was built from.
// Set via ldflags at build time, or defaults to dev.
// GoReleaser sets: -X github.com/runbookhq/retriever/pkg/version.Version={{.Version}}
var Version = "dev"

// Commit, Date, and GoVersion describe the exact build this binary came
// from; Commit and Date are set via ldflags, GoVersion is read at runtime.
var (
	Commit    = "unknown"
	Date      = "unknown"
	GoVersion = runtime.Version()
)

// Snapshot is the JSON-serializable view of the build identity, returned
// by `retrieverctl version --json`.
type Snapshot struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String renders the one-line form printed by `retrieverctl version`.
func String() string {
	return fmt.Sprintf("retrieverctl %s (commit: %s, built: %s, go: %s)",
		Version, Commit, Date, GoVersion)
}

// Short renders the bare version tag printed by `retrieverctl version --short`.
func Short() string {
	return Version
}

// Current captures the running binary's build identity.
func Current() Snapshot {
	return Snapshot{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
