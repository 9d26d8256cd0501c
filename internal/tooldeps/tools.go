//go:build tools

// Package tooldeps pins the analyzers run over wgslinc in CI so that
// go.mod records their versions.
package tooldeps

import (
	_ "github.com/kisielk/errcheck/errcheck"
	_ "github.com/timakin/bodyclose/passes/bodyclose"
	_ "golang.org/x/tools/go/analysis/passes/nilness"
	_ "golang.org/x/tools/go/analysis/passes/unusedwrite"
)
