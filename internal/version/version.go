package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for the version subcommand and run logs.
func String() string {
	return fmt.Sprintf("sct-timings %s (commit %s, built %s)", Version, GitSHA, BuildTime)
}
