// Package cmdtest provides a testscript-based test harness for wgslinc.
//
// Test files use the txtar format to specify input files and expected
// outputs.
//
// Example test file (testdata/wgslinc/flatten.txtar):
//
//	# Includes are spliced in place
//	exec wgslinc -no-validate mesh.wgsl
//	cmp stdout want.wgsl
//
//	-- mesh.wgsl --
//	#include "common.inc"
//	fn main() {}
//	-- common.inc --
//	const PI = 3.14;
//	-- want.wgsl --
//	const PI = 3.14;
//	fn main() {}
package cmdtest

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/albertocavalcante/wgslinc/internal/cmd/wgslinc"
	"github.com/albertocavalcante/wgslinc/internal/config"
)

// Run executes the testscript tests in the given directory.
func Run(t *testing.T, dir string) {
	testscript.Run(t, testscript.Params{
		Dir: dir,
		Setup: func(env *testscript.Env) error {
			// Keep a developer's config out of the scripts.
			env.Setenv(config.EnvConfig, "")
			env.Setenv("NO_COLOR", "1")
			env.Setenv("GITHUB_ACTIONS", "")
			return nil
		},
	})
}

// Main is the TestMain function that should be called from test files.
// It sets up wgslinc as a testscript command.
func Main(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"wgslinc": wrapRun(wgslinc.Run),
	}))
}

// wrapRun wraps a Run(args []string) int function to func() int for testscript.
// The args are taken from os.Args[1:].
func wrapRun(run func(args []string) int) func() int {
	return func() int {
		return run(os.Args[1:])
	}
}
