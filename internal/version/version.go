// Package version records build identification for the goce binary.
package version

import (
	"fmt"
	"runtime"
)

// Version is the current version of the application
const Version = "0.1.0"

var (
	// BuildTime is set during build using ldflags
	BuildTime = "unknown"

	// GitCommit is set during build using ldflags
	GitCommit = "unknown"
)

// FullString returns a detailed version string
func FullString() string {
	return fmt.Sprintf(
		"v%s (built: %s, commit: %s, go: %s, os: %s/%s)",
		Version,
		BuildTime,
		GitCommit,
		runtime.Version(),
		runtime.GOOS,
		runtime.GOARCH,
	)
}
