// Package version holds build metadata set through ldflags:
// go build -ldflags "-X git.home.luguber.info/inful/confexport/internal/version.Version=v1.0.0".
package version

import "fmt"

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version.
func String() string {
	return fmt.Sprintf("confexport %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
