// Package version holds build-time version information injected via ldflags.
package version

import "fmt"

// These variables are set at build time via -ldflags, e.g.
// -X github.com/hazz-dev/easycheck/internal/version.Version=v1.2.0
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build information for humans.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
