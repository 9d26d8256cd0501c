// Package cli provides output helpers and exit codes shared by wgslinc commands.
package cli

// Exit codes:
//   - 0: the artifact was built (or is up to date under -check)
//   - 1: resolution, validation or I/O failed
//   - 2: -check found a stale artifact
const (
	// ExitOK indicates a successful build.
	ExitOK = 0

	// ExitError indicates the build failed. No artifact was written
	// unless a placeholder was requested.
	ExitError = 1

	// ExitWarning indicates the build succeeded but the artifact on disk
	// differs from what it would produce.
	ExitWarning = 2
)
