// Package build exposes the version stamped into the binary.
package build

import (
	"fmt"
	"runtime"
)

// These variables are set at build time via -ldflags:
//
//	-X github.com/knsuzuki/shopmail/internal/build.Version=v1.2.3
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// Get returns the build info of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    CommitSHA,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// String returns a single human-readable build info string.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, CommitSHA, BuildDate)
}
