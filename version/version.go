// Package version exposes build information injected at link time.
package version

// These are set with -ldflags "-X github.com/farcloser/acoustica/version.version=...".
//
//nolint:gochecknoglobals
var (
	name    = "acoustica"
	version = "dev"
	commit  = "unknown"
)

// Name returns the binary name.
func Name() string {
	return name
}

// Version returns the release version, or "dev".
func Version() string {
	return version
}

// Commit returns the VCS revision the binary was built from.
func Commit() string {
	return commit
}
