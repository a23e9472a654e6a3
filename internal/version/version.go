// Package version exposes build metadata stamped in at link time:
//
//	go build -ldflags "-X github.com/MeKo-Tech/plansight/internal/version.Version=v1.0.0 ..."
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String returns the build description shown by the version command.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
