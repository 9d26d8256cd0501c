package include

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error matches exactly one of these with errors.Is.
var (
	// ErrFileRead indicates a file could not be read or decoded.
	ErrFileRead = errors.New("could not load file")

	// ErrCanonicalize indicates an included path could not be resolved
	// to a canonical absolute path, usually because it does not exist.
	ErrCanonicalize = errors.New("failed to canonicalize path")

	// ErrMalformedInclude indicates an include directive without a closing quote.
	ErrMalformedInclude = errors.New("undelimited include (missing \")")

	// ErrCircularInclude indicates a file was included while it was still being expanded.
	ErrCircularInclude = errors.New("circular include")
)

// Error is a resolution failure. Path is the file the failure is about;
// Line, when non-zero, is the 1-based line in From that triggered it.
type Error struct {
	// Kind is one of the Err* sentinels above.
	Kind error

	// Path is the offending file.
	Path string

	// From is the file containing the include directive, if any.
	From string

	// Line is the 1-based line number of the directive in From.
	Line int

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	site := ""
	if e.From != "" && e.Line > 0 {
		site = fmt.Sprintf(" (included from '%s:%d')", e.From, e.Line)
	}

	switch e.Kind {
	case ErrMalformedInclude:
		return fmt.Sprintf("%v in '%s:%d'", e.Kind, e.Path, e.Line)
	case ErrCircularInclude:
		return fmt.Sprintf("%v in %s%s", e.Kind, e.Path, site)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%v '%s'%s: %v", e.Kind, e.Path, site, e.Err)
		}
		return fmt.Sprintf("%v '%s'%s", e.Kind, e.Path, site)
	}
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
