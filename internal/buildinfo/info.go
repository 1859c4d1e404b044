// Package buildinfo holds build-time version information injected via ldflags.
package buildinfo

// Populated at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
