// Package version carries build metadata set with -ldflags, for example
//
//	go build -ldflags "-X github.com/qj0r9j0vc2/alarm-engine/internal/version.Version=v1.2.0"
package version

import "fmt"

var (
	// Version is the release tag of the build.
	Version = "dev"
	// Commit is the short git SHA.
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns only the version string.
func Short() string {
	return Version
}

// Full returns the version with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}
