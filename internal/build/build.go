// Package build carries version information set at link time.
package build

// Set with -ldflags "-X github.com/st-keller/employee-client/internal/build.Version=..."
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
