// Package ci publishes build results to the CI system running wgslinc.
//
// Only GitHub Actions is supported: results go to the job summary and
// step outputs. Elsewhere Publish does nothing.
package ci

import (
	"os"
)

// System represents a supported CI system.
type System string

const (
	SystemGitHub System = "github"
	SystemNone   System = ""
)

// Detect returns the CI system from environment variables.
func Detect() System {
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		return SystemGitHub
	}
	return SystemNone
}

// Status is the outcome of one build.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
	StatusStale  Status = "stale"
)

// Result describes one build.
type Result struct {
	Shader string
	Output string
	Status Status

	// Kind and Message describe the failure when Status is StatusFailed.
	Kind    string
	Message string

	// Inputs is the number of files the build read.
	Inputs int
}

// Publish reports r to the detected CI system.
func Publish(r Result) error {
	if Detect() != SystemGitHub {
		return nil
	}
	if err := writeSummary(os.Getenv("GITHUB_STEP_SUMMARY"), r); err != nil {
		return err
	}
	return writeOutputs(os.Getenv("GITHUB_OUTPUT"), r)
}
