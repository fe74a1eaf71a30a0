// Package version carries build metadata injected via -ldflags.
package version

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
)

// String returns a human-readable version string.
func String() string {
	return Version + " (" + GitSHA + ")"
}
