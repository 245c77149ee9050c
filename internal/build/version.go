// Package build provides version and build information for relsync.
// This package has no dependencies on other internal packages.
package build

import (
	"fmt"
	"runtime"
)

var (
	// Version information - set via ldflags during build
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// IsDevBuild returns true if running a development build (not a release).
func IsDevBuild() bool {
	return Version == "dev"
}

// UserAgent is sent to hosting services on every API request.
func UserAgent() string {
	return fmt.Sprintf("relsync/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
