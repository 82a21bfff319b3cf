package version

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags -X
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Short returns the bare version string, as shown by --version.
func Short() string {
	return Version
}

// Full returns the one-line build description printed by the version
// command: version, commit, build time, and the Go runtime triple.
func Full() string {
	return fmt.Sprintf("docsnatch %s (commit: %s, built: %s, %s %s/%s)",
		Version, Commit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
