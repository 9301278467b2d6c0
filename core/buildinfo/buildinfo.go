// Package buildinfo carries values stamped at link time:
//
//	go build -ldflags "-X 'github.com/m3rciful/telecopter/core/buildinfo.Version=v0.4.0' \
//	  -X 'github.com/m3rciful/telecopter/core/buildinfo.Commit=$(git rev-parse --short HEAD)'"
package buildinfo

var (
	// Version is the release tag.
	Version = "dev"
	// Commit is the source revision.
	Commit = "local"
	// Date is the RFC3339 build timestamp.
	Date = ""
)
