// Package version carries the build identity, injected with -ldflags:
//
//	go build -ldflags "-X github.com/emergent-company/salon-monitor/internal/version.Version=1.4.0"
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version (e.g., "1.0.0")
	Version = "dev"

	// GitCommit is the short git commit hash
	GitCommit = "unknown"

	// BuildTime is the build timestamp in RFC3339 format
	BuildTime = "unknown"
)

// BuildInfo is the build identity reported by /debug and sent with alerts.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Info returns the build identity of the running binary.
func Info() BuildInfo {
	return BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String renders the identity for the startup log line, e.g. "1.4.0 (a1b2c3d, go1.24.12)".
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", b.Version, b.GitCommit, b.GoVersion)
}
