// Package version carries the build metadata stamped into the localdocs
// binary via ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release version, "dev" for unstamped builds.
	Version = "dev"
	// Commit is the short git commit hash.
	Commit = "unknown"
	// Date is the build date, RFC3339.
	Date = "unknown"
)

// String renders the full build identification line.
func String() string {
	return fmt.Sprintf("localdocs %s (commit: %s, built: %s, go: %s, %s/%s)",
		Version, Commit, Date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
