package validator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/albertocavalcante/wgslinc/internal/shader/filekind"
)

// DefaultCommand is the shader translator used when none is configured.
const DefaultCommand = "naga"

// DefaultArgs validate the file with every capability and validation flag
// the tool supports; naga enables all of them unless told otherwise.
var DefaultArgs = []string{"{file}"}

// DefaultTimeout bounds a single collaborator run.
const DefaultTimeout = 30 * time.Second

// ToolValidator runs an external executable on the flattened source.
//
// The source is written to a temporary file named after the display path
// (tools pick their front end from the extension, so a root that is not a
// standalone module gets a .wgsl suffix) and Args are expanded
// with {file} for that file and {path} for the display path. Exit status
// zero means the source was accepted.
type ToolValidator struct {
	// Command is the executable to run. Defaults to DefaultCommand.
	Command string

	// Args is the argument template. Defaults to DefaultArgs.
	Args []string

	// Timeout bounds one run. Defaults to DefaultTimeout.
	Timeout time.Duration

	// ParseMarkers classify output as a parse failure. Defaults to DefaultParseMarkers.
	ParseMarkers []string

	// Kinds restricts the file kinds this validator applies to.
	// Empty means every root is validated.
	Kinds []filekind.Kind
}

// Name implements the Validator interface.
func (t *ToolValidator) Name() string {
	return filepath.Base(t.command())
}

// SupportedKinds implements the Validator interface.
func (t *ToolValidator) SupportedKinds() []filekind.Kind {
	return t.Kinds
}

// Validate implements the Validator interface.
func (t *ToolValidator) Validate(ctx context.Context, in Input) (Result, error) {
	dir, err := os.MkdirTemp("", "wgslinc-")
	if err != nil {
		return Result{}, fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	file := filepath.Join(dir, sourceName(in))
	if err := os.WriteFile(file, []byte(in.Source), 0o644); err != nil {
		return Result{}, fmt.Errorf("writing %s: %w", file, err)
	}

	ctx, cancel := context.WithTimeout(ctx, orDefault(t.Timeout, DefaultTimeout))
	defer cancel()

	args := expandArgs(argsOrDefault(t.Args), file, in.Path)
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, t.command(), args...)
	cmd.Dir = dir
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = time.Second

	exitCode := 0
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("%s timed out: %w", t.Name(), ctx.Err())
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, err
		}
		exitCode = exitErr.ExitCode()
	}

	return interpret(exitCode, out.String(), file, in.Path, t.ParseMarkers), nil
}

func (t *ToolValidator) command() string {
	if t.Command == "" {
		return DefaultCommand
	}
	return t.Command
}

func argsOrDefault(args []string) []string {
	if len(args) == 0 {
		return DefaultArgs
	}
	return args
}

// sourceName is the file name the collaborator sees for in.
func sourceName(in Input) string {
	kind := in.Kind
	if kind == "" {
		kind = filekind.Classify(in.Path)
	}
	base := filepath.Base(in.Path)
	if kind.IsModule() {
		return base
	}
	return base + ".wgsl"
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
