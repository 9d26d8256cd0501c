package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/wgslinc/internal/shader/bundle"
	"github.com/albertocavalcante/wgslinc/internal/shader/include"
	"github.com/albertocavalcante/wgslinc/internal/shader/validator"
)

func circularErr() error {
	return &include.Error{
		Kind: include.ErrCircularInclude,
		Path: "/src/a.inc",
		From: "/src/b.inc",
		Line: 4,
	}
}

func parseErr() error {
	return &validator.ValidationError{
		Kind:      validator.ErrParse,
		Path:      "/src/mesh.wgsl",
		Validator: "naga",
		Rendered:  "error: expected ';'\n  ┌─ /src/mesh.wgsl:3:9\n",
		Diagnostics: []validator.Diagnostic{{
			Severity: validator.SeverityError,
			Message:  "expected ';'",
			File:     "/src/mesh.wgsl",
			Line:     3,
			Column:   9,
			Source:   "naga",
		}},
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{circularErr(), "circular-include"},
		{&include.Error{Kind: include.ErrMalformedInclude, Path: "a", Line: 1}, "malformed-include"},
		{&include.Error{Kind: include.ErrCanonicalize, Path: "a", Err: os.ErrNotExist}, "canonicalize"},
		{fmt.Errorf("wrapped: %w", &include.Error{Kind: include.ErrFileRead, Path: "a"}), "read"},
		{parseErr(), "parse"},
		{&validator.ValidationError{Kind: validator.ErrSemantic}, "validation"},
		{&bundle.InputShapeError{Msg: "no path"}, "input"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestDescribe_IncludeErrorLocatesDirective(t *testing.T) {
	f := Describe(circularErr())
	if len(f.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(f.Diagnostics))
	}
	d := f.Diagnostics[0]
	if d.File != "/src/b.inc" || d.Line != 4 {
		t.Errorf("diagnostic at %s:%d, want /src/b.inc:4", d.File, d.Line)
	}
}

func TestDescribe_MalformedLocatesFile(t *testing.T) {
	f := Describe(&include.Error{Kind: include.ErrMalformedInclude, Path: "/src/c.inc", Line: 3})
	d := f.Diagnostics[0]
	if d.File != "/src/c.inc" || d.Line != 3 {
		t.Errorf("diagnostic at %s:%d, want /src/c.inc:3", d.File, d.Line)
	}
}

func TestDescribe_ValidationWithoutPositions(t *testing.T) {
	f := Describe(&validator.ValidationError{Kind: validator.ErrSemantic, Path: "/src/m.wgsl", Validator: "naga"})
	if len(f.Diagnostics) != 1 || f.Diagnostics[0].File != "/src/m.wgsl" || f.Diagnostics[0].Source != "naga" {
		t.Errorf("Diagnostics = %+v", f.Diagnostics)
	}
}

func TestNew(t *testing.T) {
	for _, f := range Formats() {
		if _, err := New(string(f), false); err != nil {
			t.Errorf("New(%q) error = %v", f, err)
		}
	}
	if _, err := New("sarif", false); err == nil {
		t.Error("New(sarif) succeeded, want error")
	}
}

func TestColorEnabled(t *testing.T) {
	var buf bytes.Buffer
	if !ColorEnabled("always", &buf) {
		t.Error("always: want color")
	}
	if ColorEnabled("never", os.Stderr) {
		t.Error("never: want no color")
	}
	if ColorEnabled("auto", &buf) {
		t.Error("auto on a buffer: want no color")
	}
}

func TestTextReporter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextReporter{}).Report(&buf, parseErr()); err != nil {
		t.Fatal(err)
	}

	want := "wgslinc: parse errors occurred in '/src/mesh.wgsl': 3:9: expected ';'\n" +
		"error: expected ';'\n  ┌─ /src/mesh.wgsl:3:9\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("text output mismatch (-want +got):\n%s", diff)
	}
}

func TestTextReporter_Color(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextReporter{ColorOutput: true}).Report(&buf, errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "\033[1;31mwgslinc:\033[0m boom") {
		t.Errorf("colored output = %q", buf.String())
	}
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONReporter{}).Report(&buf, parseErr()); err != nil {
		t.Fatal(err)
	}

	var got Failure
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal: %v\n%s", err, buf.String())
	}
	if got.Kind != "parse" || len(got.Diagnostics) != 1 || got.Diagnostics[0].Line != 3 {
		t.Errorf("decoded failure = %+v", got)
	}
	if !strings.Contains(got.Rendered, "┌─") {
		t.Errorf("rendered report lost: %q", got.Rendered)
	}
}

func TestGitHubReporter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&GitHubReporter{}).Report(&buf, parseErr()); err != nil {
		t.Fatal(err)
	}

	want := "::error file=/src/mesh.wgsl,line=3,col=9,title=wgslinc (parse)::expected ';'\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("github output mismatch (-want +got):\n%s", diff)
	}
}

func TestGitHubReporter_Escapes(t *testing.T) {
	var buf bytes.Buffer
	if err := (&GitHubReporter{}).Report(&buf, errors.New("100%\nbroken")); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "::error title=wgslinc (error)::100%25%0Abroken\n" {
		t.Errorf("escaped output = %q", got)
	}
}

func TestLSPReporter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&LSPReporter{}).Report(&buf, circularErr()); err != nil {
		t.Fatal(err)
	}

	var got protocol.PublishDiagnosticsParams
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal: %v\n%s", err, buf.String())
	}
	if got.URI != "file:///src/b.inc" {
		t.Errorf("URI = %q, want file:///src/b.inc", got.URI)
	}
	if len(got.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(got.Diagnostics))
	}
	d := got.Diagnostics[0]
	if d.Range.Start.Line != 3 || d.Severity != protocol.DiagnosticSeverityError || d.Source != Source {
		t.Errorf("diagnostic = %+v", d)
	}
}
