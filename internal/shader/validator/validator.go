// Package validator hands flattened shader source to an external parser and
// validator and maps its findings to diagnostics anchored at the root file.
//
// The shading language itself is never parsed here. A Validator runs the
// collaborator (an executable, a WASI module or a function) and reports
// which phase failed together with the collaborator's own rendered output.
// Validate turns a failing Result into a *ValidationError.
package validator

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/albertocavalcante/wgslinc/internal/shader/filekind"
)

// Severity represents the severity of a diagnostic message.
type Severity int

const (
	// SeverityError indicates a blocking issue that prevents further processing.
	SeverityError Severity = iota
	// SeverityWarning indicates a non-blocking issue that should be addressed.
	SeverityWarning
	// SeverityInfo indicates informational messages.
	SeverityInfo
	// SeverityHint indicates suggestions for improvement.
	SeverityHint
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Diagnostic represents a validation finding.
type Diagnostic struct {
	// Severity indicates how serious this issue is.
	Severity Severity `json:"severity"`

	// Message is a human-readable description of the issue.
	Message string `json:"message"`

	// File is the display path of the root file, never an intermediate include.
	File string `json:"file"`

	// Line is the 1-based line number in the flattened source, 0 if unknown.
	Line int `json:"line"`

	// Column is the 1-based column number, 0 if unknown.
	Column int `json:"column"`

	// Code is a machine-readable code for this diagnostic, if the collaborator has one.
	Code string `json:"code,omitempty"`

	// Source identifies the validator that produced this diagnostic.
	Source string `json:"source"`
}

// IsError returns true if this diagnostic is an error.
func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

// Phase is the stage at which a collaborator rejected the source.
type Phase int

const (
	// PhaseNone means the source was accepted.
	PhaseNone Phase = iota
	// PhaseParse means the source did not parse.
	PhaseParse
	// PhaseValidation means the source parsed but failed semantic validation.
	PhaseValidation
)

// String returns the string representation of the Phase.
func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseParse:
		return "parse"
	case PhaseValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Input is what a validator is asked to check.
type Input struct {
	// Path is the display path used to anchor diagnostics.
	Path string

	// Kind is the file kind of the root file.
	Kind filekind.Kind

	// Source is the flattened text.
	Source string
}

// Result is a collaborator's verdict on one Input.
type Result struct {
	// Phase is PhaseNone on success.
	Phase Phase

	// Diagnostics holds the positioned findings, if any could be extracted.
	Diagnostics []Diagnostic

	// Rendered is the collaborator's own human-readable report, already
	// anchored at Input.Path.
	Rendered string
}

// OK returns true if the source was accepted.
func (r Result) OK() bool {
	return r.Phase == PhaseNone
}

// Validator parses and validates shader source.
type Validator interface {
	// Name returns the unique identifier for this validator.
	Name() string

	// Validate checks the input. It returns an error only if the
	// collaborator could not be run, not for problems in the source.
	Validate(ctx context.Context, in Input) (Result, error)

	// SupportedKinds returns the file kinds this validator applies to.
	// An empty slice means all kinds are supported.
	SupportedKinds() []filekind.Kind
}

// ValidatorFunc is a function type that implements Validator.
type ValidatorFunc struct {
	NameVal    string
	Kinds      []filekind.Kind
	ValidateFn func(ctx context.Context, in Input) (Result, error)
}

// Name implements the Validator interface.
func (v ValidatorFunc) Name() string {
	return v.NameVal
}

// Validate implements the Validator interface.
func (v ValidatorFunc) Validate(ctx context.Context, in Input) (Result, error) {
	if v.ValidateFn != nil {
		return v.ValidateFn(ctx, in)
	}
	return Result{}, nil
}

// SupportedKinds implements the Validator interface.
func (v ValidatorFunc) SupportedKinds() []filekind.Kind {
	return v.Kinds
}

// Failure kinds carried by ValidationError.
var (
	// ErrParse indicates the collaborator could not parse the source.
	ErrParse = errors.New("parse errors occurred")

	// ErrSemantic indicates the source parsed but did not validate.
	ErrSemantic = errors.New("validation errors occurred")
)

// ValidationError is returned by Validate when a collaborator rejects the source.
type ValidationError struct {
	// Kind is ErrParse or ErrSemantic.
	Kind error

	// Path is the display path of the root file.
	Path string

	// Validator is the name of the collaborator that failed.
	Validator string

	// Rendered is the collaborator's own report, for display to the user.
	Rendered string

	// Diagnostics are the positioned findings.
	Diagnostics []Diagnostic
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%v in '%s'", e.Kind, e.Path)
	if len(e.Diagnostics) > 0 {
		d := e.Diagnostics[0]
		if d.Line > 0 {
			msg += fmt.Sprintf(": %d:%d: %s", d.Line, d.Column, d.Message)
		} else if d.Message != "" {
			msg += ": " + d.Message
		}
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// Runner runs multiple validators in order and stops at the first rejection.
type Runner struct {
	validators []Validator
}

// NewRunner creates a new validator runner.
func NewRunner(validators ...Validator) *Runner {
	return &Runner{validators: validators}
}

// Validators returns the configured validators.
func (r *Runner) Validators() []Validator {
	return r.validators
}

// Validate runs every applicable validator against the flattened source.
// The root's file kind is derived from displayPath. A rejection is
// returned as a *ValidationError anchored at displayPath; a collaborator
// that cannot be run yields a plain wrapped error.
func (r *Runner) Validate(ctx context.Context, displayPath, source string) error {
	in := Input{
		Path:   displayPath,
		Kind:   filekind.Classify(displayPath),
		Source: source,
	}
	for _, v := range r.validators {
		kinds := v.SupportedKinds()
		if len(kinds) > 0 && !slices.Contains(kinds, in.Kind) {
			continue
		}
		res, err := v.Validate(ctx, in)
		if err != nil {
			return fmt.Errorf("running validator %s: %w", v.Name(), err)
		}
		if res.OK() {
			continue
		}
		return newValidationError(v.Name(), displayPath, res)
	}
	return nil
}

// Validate runs a single validator. It is shorthand for NewRunner(v).Validate.
func Validate(ctx context.Context, v Validator, displayPath, source string) error {
	return NewRunner(v).Validate(ctx, displayPath, source)
}

func newValidationError(name, path string, res Result) *ValidationError {
	kind := ErrSemantic
	if res.Phase == PhaseParse {
		kind = ErrParse
	}
	diags := make([]Diagnostic, len(res.Diagnostics))
	for i, d := range res.Diagnostics {
		d.File = path
		if d.Source == "" {
			d.Source = name
		}
		diags[i] = d
	}
	return &ValidationError{
		Kind:        kind,
		Path:        path,
		Validator:   name,
		Rendered:    res.Rendered,
		Diagnostics: diags,
	}
}
