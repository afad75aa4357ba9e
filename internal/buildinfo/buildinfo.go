// Package buildinfo carries build metadata injected at link time:
//
//	go build -ldflags "-X github.com/varsilias/chatpad/internal/buildinfo.Version=v0.3.0 ..."
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	BuiltAt = "unknown"
)
