// Package version reports the wgslinc build version.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at link time with -ldflags "-X".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the version line printed by -version. A binary installed
// with go install reports its module version instead of "dev".
func String() string {
	v, c := Version, Commit
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	return fmt.Sprintf("%s (commit %s, built %s)", v, c, Date)
}
