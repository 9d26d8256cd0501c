package validator

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultParseMarkers identify parse failures in collaborator output.
// Output that matches none of them is treated as a semantic failure.
var DefaultParseMarkers = []string{
	"could not parse",
	"parse error",
	"parsing error",
}

var (
	headerRe   = regexp.MustCompile(`^(error|warning|note|help)(?:\[([^\]]+)\])?:\s*(.*)$`)
	locationRe = regexp.MustCompile(`^\s*[┌╭]─+\s*(.+):(\d+):(\d+)\s*$`)
	noteRe     = regexp.MustCompile(`^\s*=\s+(.+)$`)
)

// ParseCodespan extracts diagnostics from codespan-style output, the format
// naga and most Rust-based shader tools render:
//
//	error: expected ';', found '}'
//	  ┌─ mesh.wgsl:3:5
//	  │
//	3 │     }
//	  │     ^ expected ';'
//
// Positions are taken as reported. File is left empty; Runner anchors
// every diagnostic at the display path.
func ParseCodespan(output string) []Diagnostic {
	var (
		diags   []Diagnostic
		pending *Diagnostic
	)
	flush := func() {
		if pending != nil {
			diags = append(diags, *pending)
			pending = nil
		}
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")

		if m := headerRe.FindStringSubmatch(line); m != nil {
			flush()
			pending = &Diagnostic{
				Severity: severityFromLabel(m[1]),
				Code:     m[2],
				Message:  strings.TrimSpace(m[3]),
			}
			continue
		}
		if pending == nil {
			continue
		}
		if m := locationRe.FindStringSubmatch(line); m != nil {
			if pending.Line == 0 {
				pending.Line, _ = strconv.Atoi(m[2])
				pending.Column, _ = strconv.Atoi(m[3])
			}
			continue
		}
		if m := noteRe.FindStringSubmatch(line); m != nil && pending.Message == "" {
			pending.Message = strings.TrimSpace(m[1])
		}
	}
	flush()

	return diags
}

func severityFromLabel(label string) Severity {
	switch label {
	case "error":
		return SeverityError
	case "warning":
		return SeverityWarning
	case "note":
		return SeverityInfo
	default:
		return SeverityHint
	}
}

// interpret builds a Result from a finished collaborator run. file is the
// name the collaborator saw, which is rewritten to displayPath.
func interpret(exitCode int, output, file, displayPath string, parseMarkers []string) Result {
	if exitCode == 0 {
		return Result{Phase: PhaseNone}
	}

	rendered := output
	if file != "" {
		rendered = strings.ReplaceAll(rendered, file, displayPath)
	}
	rendered = strings.TrimRight(rendered, "\n")

	if len(parseMarkers) == 0 {
		parseMarkers = DefaultParseMarkers
	}
	phase := PhaseValidation
	lower := strings.ToLower(output)
	for _, marker := range parseMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			phase = PhaseParse
			break
		}
	}

	diags := ParseCodespan(rendered)
	if len(diags) == 0 && rendered != "" {
		diags = []Diagnostic{{Severity: SeverityError, Message: firstLine(rendered)}}
	}

	return Result{
		Phase:       phase,
		Diagnostics: diags,
		Rendered:    rendered,
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

// expandArgs substitutes {file} and {path} in an argument template.
func expandArgs(template []string, file, displayPath string) []string {
	args := make([]string, len(template))
	for i, a := range template {
		a = strings.ReplaceAll(a, "{file}", file)
		args[i] = strings.ReplaceAll(a, "{path}", displayPath)
	}
	return args
}
