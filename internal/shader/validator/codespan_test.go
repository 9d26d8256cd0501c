package validator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCodespan(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []Diagnostic
	}{
		{
			name:   "empty",
			output: "",
			want:   nil,
		},
		{
			name: "single error with location",
			output: `error: expected ';', found '}'
  ┌─ mesh.wgsl:3:5
  │
3 │     }
  │     ^ expected ';'

Could not parse WGSL`,
			want: []Diagnostic{
				{Severity: SeverityError, Message: "expected ';', found '}'", Line: 3, Column: 5},
			},
		},
		{
			name: "empty message falls back to note",
			output: `error:
  ┌─ mesh.wgsl:9:5
  │
9 │     return x;
  │     ^^^^^^^^ naga::Expression [3]
  │
  = The type of [3] doesn't match the function result`,
			want: []Diagnostic{
				{Severity: SeverityError, Message: "The type of [3] doesn't match the function result", Line: 9, Column: 5},
			},
		},
		{
			name: "code and multiple entries",
			output: `warning[W1]: unused variable
  ╭─ a.wgsl:1:2
error[E2]: unknown type
  ┌─ a.wgsl:4:10
  ┌─ a.wgsl:8:1`,
			want: []Diagnostic{
				{Severity: SeverityWarning, Code: "W1", Message: "unused variable", Line: 1, Column: 2},
				{Severity: SeverityError, Code: "E2", Message: "unknown type", Line: 4, Column: 10},
			},
		},
		{
			name:   "path containing colons",
			output: "error: bad\r\n  ┌─ C:\\shaders\\a.wgsl:12:7\r\n",
			want: []Diagnostic{
				{Severity: SeverityError, Message: "bad", Line: 12, Column: 7},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCodespan(tt.output)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseCodespan mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInterpret(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		res := interpret(0, "Validation successful\n", "/tmp/x/a.wgsl", "a.wgsl", nil)
		if !res.OK() {
			t.Errorf("exit 0 should be accepted, got %v", res.Phase)
		}
	})

	t.Run("parse failure is rewritten to display path", func(t *testing.T) {
		out := "error: expected ident\n  ┌─ /tmp/x/a.wgsl:2:3\n\nCould not parse WGSL\n"
		res := interpret(1, out, "/tmp/x/a.wgsl", "shaders/a.wgsl", nil)

		if res.Phase != PhaseParse {
			t.Errorf("Phase = %v, want parse", res.Phase)
		}
		want := "error: expected ident\n  ┌─ shaders/a.wgsl:2:3\n\nCould not parse WGSL"
		if res.Rendered != want {
			t.Errorf("Rendered = %q, want %q", res.Rendered, want)
		}
		if len(res.Diagnostics) == 0 || res.Diagnostics[0].Line != 2 || res.Diagnostics[0].Column != 3 {
			t.Errorf("Diagnostics = %+v, want first at 2:3", res.Diagnostics)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		res := interpret(1, "error: Function [0] 'main' is invalid\n", "", "a.wgsl", nil)
		if res.Phase != PhaseValidation {
			t.Errorf("Phase = %v, want validation", res.Phase)
		}
	})

	t.Run("unstructured output", func(t *testing.T) {
		res := interpret(2, "segfault\nmore\n", "", "a.wgsl", []string{"nothing"})
		want := []Diagnostic{{Severity: SeverityError, Message: "segfault"}}
		if diff := cmp.Diff(want, res.Diagnostics); diff != "" {
			t.Errorf("Diagnostics mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestExpandArgs(t *testing.T) {
	got := expandArgs([]string{"--input", "{file}", "--label={path}", "-v"}, "/tmp/a.wgsl", "src/a.wgsl")
	want := []string{"--input", "/tmp/a.wgsl", "--label=src/a.wgsl", "-v"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("expandArgs mismatch (-want +got):\n%s", diff)
	}
}
