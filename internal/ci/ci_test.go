package ci

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func clearCI(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GITHUB_ACTIONS", "GITHUB_STEP_SUMMARY", "GITHUB_OUTPUT"} {
		t.Setenv(k, "")
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		key, value string
		want       System
	}{
		{"GITHUB_ACTIONS", "true", SystemGitHub},
		{"GITHUB_ACTIONS", "false", SystemNone},
		{"GITLAB_CI", "true", SystemNone},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearCI(t)
			t.Setenv(tt.key, tt.value)
			if got := Detect(); got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPublish_GitHub(t *testing.T) {
	clearCI(t)
	dir := t.TempDir()
	summary := filepath.Join(dir, "summary.md")
	outputs := filepath.Join(dir, "outputs")
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_STEP_SUMMARY", summary)
	t.Setenv("GITHUB_OUTPUT", outputs)

	err := Publish(Result{
		Shader:  "shaders/mesh.wgsl",
		Output:  "gen/mesh.wgsl",
		Status:  StatusFailed,
		Kind:    "circular-include",
		Message: "circular include: a.inc",
		Inputs:  0,
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	got, err := os.ReadFile(outputs)
	if err != nil {
		t.Fatal(err)
	}
	want := "status=failed\ninputs=0\nkind=circular-include\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}

	md, err := os.ReadFile(summary)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{
		"### wgslinc: `shaders/mesh.wgsl`",
		"| ❌ failed | `gen/mesh.wgsl` | 0 |",
		"<summary>circular-include</summary>",
		"circular include: a.inc",
	} {
		if !strings.Contains(string(md), s) {
			t.Errorf("summary missing %q:\n%s", s, md)
		}
	}
}

func TestPublish_Appends(t *testing.T) {
	clearCI(t)
	outputs := filepath.Join(t.TempDir(), "outputs")
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_OUTPUT", outputs)

	for _, s := range []Status{StatusOK, StatusStale} {
		if err := Publish(Result{Shader: "a.wgsl", Status: s, Inputs: 2}); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	got, err := os.ReadFile(outputs)
	if err != nil {
		t.Fatal(err)
	}
	want := "status=ok\ninputs=2\nstatus=stale\ninputs=2\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
}

func TestPublish_OutsideGitHub(t *testing.T) {
	clearCI(t)
	outputs := filepath.Join(t.TempDir(), "outputs")
	t.Setenv("GITLAB_CI", "true")
	t.Setenv("GITHUB_OUTPUT", outputs)

	if err := Publish(Result{Shader: "a.wgsl", Status: StatusOK}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if _, err := os.Stat(outputs); !os.IsNotExist(err) {
		t.Errorf("outputs written outside GitHub Actions (err=%v)", err)
	}
}
