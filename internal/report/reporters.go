package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/albertocavalcante/wgslinc/internal/shader/validator"
)

// TextReporter prints "wgslinc: <message>" followed by the validator's
// rendered report, if any.
type TextReporter struct {
	// ColorOutput enables ANSI colors (for terminals).
	ColorOutput bool
}

// Report implements Reporter.
func (r *TextReporter) Report(w io.Writer, err error) error {
	f := Describe(err)

	prefix := Source + ":"
	if r.ColorOutput {
		prefix = "\033[1;31m" + prefix + "\033[0m" // Bold red
	}
	if _, err := fmt.Fprintf(w, "%s %s\n", prefix, f.Message); err != nil {
		return err
	}

	if f.Rendered == "" {
		return nil
	}
	rendered := strings.TrimRight(f.Rendered, "\n") + "\n"
	_, err = io.WriteString(w, rendered)
	return err
}

// JSONReporter prints the Failure as a single JSON document.
type JSONReporter struct{}

// Report implements Reporter.
func (r *JSONReporter) Report(w io.Writer, err error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Describe(err))
}

// GitHubReporter prints GitHub Actions workflow annotations.
// Format: ::error file={file},line={line},col={col},title={title}::{message}
type GitHubReporter struct{}

// Report implements Reporter.
func (r *GitHubReporter) Report(w io.Writer, err error) error {
	f := Describe(err)
	for _, d := range f.Diagnostics {
		var params []string
		if d.File != "" {
			params = append(params, "file="+escapeProperty(d.File))
		}
		if d.Line > 0 {
			params = append(params, fmt.Sprintf("line=%d", d.Line))
		}
		if d.Column > 0 {
			params = append(params, fmt.Sprintf("col=%d", d.Column))
		}
		params = append(params, "title="+escapeProperty(Source+" ("+f.Kind+")"))

		if _, err := fmt.Fprintf(w, "::%s %s::%s\n",
			githubLevel(d.Severity), strings.Join(params, ","), escapeData(d.Message)); err != nil {
			return err
		}
	}
	return nil
}

func githubLevel(s validator.Severity) string {
	switch s {
	case validator.SeverityError:
		return "error"
	case validator.SeverityWarning:
		return "warning"
	default:
		// GitHub Actions only supports error, warning, and notice
		return "notice"
	}
}

var (
	dataEscaper     = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	propertyEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
)

func escapeData(s string) string     { return dataEscaper.Replace(s) }
func escapeProperty(s string) string { return propertyEscaper.Replace(s) }

// LSPReporter prints one textDocument/publishDiagnostics payload per file,
// one JSON object per line, for editor problem matchers and tasks.
type LSPReporter struct{}

// Report implements Reporter.
func (r *LSPReporter) Report(w io.Writer, err error) error {
	f := Describe(err)

	var order []string
	byFile := make(map[string][]protocol.Diagnostic)
	for _, d := range f.Diagnostics {
		if _, seen := byFile[d.File]; !seen {
			order = append(order, d.File)
		}
		byFile[d.File] = append(byFile[d.File], toLSP(d, f.Kind))
	}

	enc := json.NewEncoder(w)
	for _, file := range order {
		params := protocol.PublishDiagnosticsParams{
			URI:         documentURI(file),
			Diagnostics: byFile[file],
		}
		if err := enc.Encode(params); err != nil {
			return err
		}
	}
	return nil
}

func documentURI(path string) protocol.DocumentURI {
	if path == "" {
		return ""
	}
	return protocol.DocumentURI(uri.File(path))
}

// toLSP converts a 1-based diagnostic to a 0-based LSP diagnostic.
func toLSP(d validator.Diagnostic, kind string) protocol.Diagnostic {
	startLine := uint32(0)
	if d.Line > 0 {
		startLine = uint32(d.Line - 1)
	}
	startChar := uint32(0)
	if d.Column > 0 {
		startChar = uint32(d.Column - 1)
	}

	code := d.Code
	if code == "" {
		code = kind
	}
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: startLine, Character: startChar},
			End:   protocol.Position{Line: startLine, Character: startChar + 1},
		},
		Severity: lspSeverity(d.Severity),
		Code:     code,
		Source:   d.Source,
		Message:  d.Message,
	}
}

func lspSeverity(s validator.Severity) protocol.DiagnosticSeverity {
	switch s {
	case validator.SeverityError:
		return protocol.DiagnosticSeverityError
	case validator.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case validator.SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityHint
	}
}
