// Package version provides version information.
package version

// Version is set at build time via -ldflags "-X github.com/tapkit/tapkit/internal/version.Version=<value>"
// and must match the tag a release is published from.
var Version = "v0.3.1"
