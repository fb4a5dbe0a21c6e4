// Package version carries the build-time version string, overridden via
// -ldflags "-X github.com/projectqai/tracknet/version.Version=...".
package version

// Version is stamped at build time; "dev" for local, unstamped builds.
var Version = "dev"
