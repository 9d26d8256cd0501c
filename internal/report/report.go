// Package report prints build failures for people, CI systems and editors.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"golang.org/x/term"

	"github.com/albertocavalcante/wgslinc/internal/shader/bundle"
	"github.com/albertocavalcante/wgslinc/internal/shader/include"
	"github.com/albertocavalcante/wgslinc/internal/shader/validator"
)

// Source names wgslinc in diagnostics it produces itself.
const Source = "wgslinc"

// Reporter formats and outputs a build failure.
type Reporter interface {
	// Report writes err to w.
	Report(w io.Writer, err error) error
}

// Format names a reporter.
type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatGitHub Format = "github"
	FormatLSP    Format = "lsp"
)

// Formats lists the supported diagnostic formats.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatGitHub, FormatLSP}
}

// New returns the reporter for format. color only affects FormatText.
func New(format string, color bool) (Reporter, error) {
	switch Format(format) {
	case FormatText, "":
		return &TextReporter{ColorOutput: color}, nil
	case FormatJSON:
		return &JSONReporter{}, nil
	case FormatGitHub:
		return &GitHubReporter{}, nil
	case FormatLSP:
		return &LSPReporter{}, nil
	default:
		return nil, fmt.Errorf("unknown diagnostics format %q (expected text, json, github or lsp)", format)
	}
}

// ColorEnabled decides whether to color output written to w.
// mode is auto, always or never; auto colors terminals unless NO_COLOR is set.
func ColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Failure is the reportable shape of a build error.
type Failure struct {
	// Kind classifies the failure, e.g. "circular-include" or "parse".
	Kind string `json:"kind"`

	// Message is the full error text.
	Message string `json:"message"`

	// Diagnostics locate the failure. There is always at least one.
	Diagnostics []validator.Diagnostic `json:"diagnostics"`

	// Rendered is the validator's own report, if any.
	Rendered string `json:"rendered,omitempty"`
}

// Describe converts err into a Failure.
func Describe(err error) Failure {
	f := Failure{Kind: Kind(err), Message: err.Error()}

	var incErr *include.Error
	var valErr *validator.ValidationError
	switch {
	case errors.As(err, &incErr):
		d := validator.Diagnostic{
			Severity: validator.SeverityError,
			Message:  incErr.Error(),
			File:     incErr.Path,
			Source:   Source,
		}
		switch {
		case errors.Is(incErr.Kind, include.ErrMalformedInclude):
			d.Line = incErr.Line
		case incErr.From != "":
			d.File, d.Line = incErr.From, incErr.Line
		}
		f.Diagnostics = []validator.Diagnostic{d}

	case errors.As(err, &valErr):
		f.Rendered = valErr.Rendered
		f.Diagnostics = append(f.Diagnostics, valErr.Diagnostics...)
		if len(f.Diagnostics) == 0 {
			f.Diagnostics = []validator.Diagnostic{{
				Severity: validator.SeverityError,
				Message:  valErr.Error(),
				File:     valErr.Path,
				Source:   valErr.Validator,
			}}
		}
		sort.SliceStable(f.Diagnostics, func(i, j int) bool {
			di, dj := f.Diagnostics[i], f.Diagnostics[j]
			if di.Line != dj.Line {
				return di.Line < dj.Line
			}
			return di.Column < dj.Column
		})

	default:
		f.Diagnostics = []validator.Diagnostic{{
			Severity: validator.SeverityError,
			Message:  err.Error(),
			Source:   Source,
		}}
	}
	return f
}

// Kind returns a stable, machine-readable name for the class of err.
func Kind(err error) string {
	var shape *bundle.InputShapeError
	switch {
	case errors.Is(err, include.ErrCircularInclude):
		return "circular-include"
	case errors.Is(err, include.ErrMalformedInclude):
		return "malformed-include"
	case errors.Is(err, include.ErrCanonicalize):
		return "canonicalize"
	case errors.Is(err, include.ErrFileRead):
		return "read"
	case errors.Is(err, validator.ErrParse):
		return "parse"
	case errors.Is(err, validator.ErrSemantic):
		return "validation"
	case errors.As(err, &shape):
		return "input"
	default:
		return "error"
	}
}
