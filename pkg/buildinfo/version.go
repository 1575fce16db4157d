// Package buildinfo holds the version stamped into OpenChain binaries.
//
// Set with ldflags at build time:
//
//	go build -ldflags "-X github.com/matzehuels/openchain/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/openchain/pkg/buildinfo.Commit=$(git rev-parse --short HEAD)" \
//	    ./cmd/openchain
package buildinfo

import "fmt"

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// Commit is the source revision.
	Commit = "none"

	// Date is the UTC build time.
	Date = "unknown"
)

// String returns the build information on three lines.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (%s, %s)\n", Version, Commit, Date)
}

// UserAgent identifies OpenChain in outbound requests.
func UserAgent() string {
	return "openchain/" + Version
}
