package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoadTOMLConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name: "all sections",
			content: `
[validate]
enabled = true
command = "naga-cli"
args = ["--validate", "{file}"]
timeout = "10s"

[output]
format = "go"
package = "gfx"
name = "Mesh"
deps_format = "bazel"

[diagnostics]
format = "github"
color = "never"
`,
			check: func(t *testing.T, cfg *Config) {
				enabled := true
				want := &Config{
					Validate: ValidateConfig{
						Enabled: &enabled,
						Command: "naga-cli",
						Args:    []string{"--validate", "{file}"},
						Timeout: Duration{10 * time.Second},
					},
					Output:      OutputConfig{Format: "go", Package: "gfx", Name: "Mesh", DepsFormat: "bazel"},
					Diagnostics: DiagnosticsConfig{Format: "github", Color: "never"},
				}
				if diff := cmp.Diff(want, cfg); diff != "" {
					t.Errorf("config mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name: "disable validation",
			content: `
[validate]
enabled = false
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Validate.IsEnabled() {
					t.Error("validate.enabled = true, want false")
				}
				if cfg.Validate.Command != "naga" {
					t.Errorf("command = %q, want default naga", cfg.Validate.Command)
				}
			},
		},
		{
			name:    "empty config keeps defaults",
			content: "",
			check: func(t *testing.T, cfg *Config) {
				if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
					t.Errorf("config mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:    "invalid toml",
			content: "this is not valid toml [[[",
			wantErr: true,
		},
		{
			name: "invalid duration",
			content: `
[validate]
timeout = "soon"
`,
			wantErr: true,
		},
		{
			name: "unknown key",
			content: `
[output]
fromat = "go"
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), ConfigTOML, tt.content)

			cfg, err := LoadTOMLConfig(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadTOMLConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && cfg != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name: "sections",
			content: `
validate:
  wasm: tools/naga.wasm
  timeout: 1m
output:
  format: json
diagnostics:
  format: lsp
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Validate.Wasm != "tools/naga.wasm" {
					t.Errorf("wasm = %q", cfg.Validate.Wasm)
				}
				if cfg.Validate.Timeout.Duration != time.Minute {
					t.Errorf("timeout = %v, want 1m", cfg.Validate.Timeout.Duration)
				}
				if cfg.Output.Format != "json" || cfg.Output.Package != "shaders" {
					t.Errorf("output = %+v", cfg.Output)
				}
				if cfg.Diagnostics.Format != "lsp" || cfg.Diagnostics.Color != "auto" {
					t.Errorf("diagnostics = %+v", cfg.Diagnostics)
				}
			},
		},
		{
			name:    "empty document",
			content: "",
			check: func(t *testing.T, cfg *Config) {
				if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
					t.Errorf("config mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:    "unknown field",
			content: "output:\n  colour: red\n",
			wantErr: true,
		},
		{
			name:    "duration not a scalar",
			content: "validate:\n  timeout: [1, 2]\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), ConfigYAML, tt.content)

			cfg, err := LoadYAMLConfig(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadYAMLConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && cfg != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadStarlarkConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		check   func(t *testing.T, cfg *Config)
		wantErr error
		anyErr  bool
	}{
		{
			name: "basic configure function",
			content: `
def configure():
    return {
        "validate": {
            "command": "naga",
            "args": ["{file}"],
            "timeout": duration("90s"),
        },
        "output": {"format": "go", "package": "gfx"},
    }
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Validate.Timeout.Duration != 90*time.Second {
					t.Errorf("timeout = %v, want 90s", cfg.Validate.Timeout.Duration)
				}
				if cfg.Output.Format != "go" || cfg.Output.Package != "gfx" {
					t.Errorf("output = %+v", cfg.Output)
				}
			},
		},
		{
			name: "conditional with getenv",
			content: `
def configure():
    ci = getenv("CI", "") != ""
    return {
        "diagnostics": {"format": "github" if ci else "text"},
        "validate": {"enabled": not ci or host_os != ""},
    }
`,
			env: map[string]string{"CI": "true"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Diagnostics.Format != "github" {
					t.Errorf("diagnostics.format = %q, want github (CI=true)", cfg.Diagnostics.Format)
				}
				if !cfg.Validate.IsEnabled() {
					t.Error("validation disabled, want enabled")
				}
			},
		},
		{
			name:    "missing configure",
			content: "x = 1\n",
			wantErr: ErrConfigureNotFound,
		},
		{
			name:    "configure returns list",
			content: "def configure():\n    return []\n",
			wantErr: ErrConfigureReturnType,
		},
		{
			name:    "non-string command",
			content: "def configure():\n    return {\"validate\": {\"command\": 1}}\n",
			anyErr:  true,
		},
		{
			name:    "unknown section",
			content: "def configure():\n    return {\"lint\": {}}\n",
			anyErr:  true,
		},
		{
			name:    "invalid duration builtin",
			content: "def configure():\n    return {\"validate\": {\"timeout\": duration(\"later\")}}\n",
			anyErr:  true,
		},
		{
			name:    "load is unavailable",
			content: "load(\"other.sky\", \"x\")\ndef configure():\n    return {}\n",
			anyErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, t.TempDir(), ConfigSky, tt.content)

			cfg, err := LoadStarlarkConfig(path, DefaultStarlarkTimeout)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("LoadStarlarkConfig() error = %v, want %v", err, tt.wantErr)
				}
			case tt.anyErr:
				if err == nil {
					t.Fatal("LoadStarlarkConfig() succeeded, want error")
				}
			default:
				if err != nil {
					t.Fatalf("LoadStarlarkConfig() error = %v", err)
				}
				tt.check(t, cfg)
			}
		})
	}
}

func TestStarlarkTimeout(t *testing.T) {
	path := writeConfig(t, t.TempDir(), ConfigSky, `
def configure():
    while True:
        pass
    return {}
`)

	start := time.Now()
	_, err := LoadStarlarkConfig(path, 100*time.Millisecond)
	elapsed := time.Since(start)

	if err == nil {
		t.Error("expected timeout error, got nil")
	}
	if elapsed > 2*time.Second {
		t.Errorf("timeout took too long: %v", elapsed)
	}
}

func TestDiscoverConfig(t *testing.T) {
	t.Setenv(EnvConfig, "")

	tests := []struct {
		name     string
		files    map[string]string
		startIn  string
		wantFile string
		wantErr  error
	}{
		{
			name:     "finds config.sky",
			files:    map[string]string{ConfigSky: "def configure():\n    return {}\n"},
			wantFile: ConfigSky,
		},
		{
			name:     "finds wgslinc.toml",
			files:    map[string]string{ConfigTOML: "[output]\nformat = \"go\"\n"},
			wantFile: ConfigTOML,
		},
		{
			name:     "finds wgslinc.yaml",
			files:    map[string]string{ConfigYAML: "output:\n  format: go\n"},
			wantFile: ConfigYAML,
		},
		{
			name: "conflict",
			files: map[string]string{
				ConfigTOML: "",
				ConfigYAML: "",
			},
			wantErr: ErrConflict,
		},
		{
			name: "walks up to parent",
			files: map[string]string{
				ConfigTOML:          "",
				"shaders/lib/.keep": "",
			},
			startIn:  "shaders/lib",
			wantFile: ConfigTOML,
		},
		{
			name: "stops at git root",
			files: map[string]string{
				ConfigTOML:           "",
				"repo/.git/HEAD":     "",
				"repo/shaders/.keep": "",
			},
			startIn: "repo/shaders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				path := filepath.Join(dir, name)
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					t.Fatal(err)
				}
				writeConfig(t, filepath.Dir(path), filepath.Base(path), content)
			}

			cfg, found, err := DiscoverConfig(filepath.Join(dir, tt.startIn))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DiscoverConfig() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DiscoverConfig() error = %v", err)
			}
			if cfg == nil {
				t.Fatal("DiscoverConfig() returned nil config")
			}

			want := ""
			if tt.wantFile != "" {
				want = filepath.Join(dir, tt.wantFile)
			}
			if found != want {
				t.Errorf("found = %q, want %q", found, want)
			}
		})
	}
}

func TestDiscoverConfigEnvVar(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "custom.yaml", "output:\n  name: FromEnv\n")
	t.Setenv(EnvConfig, path)

	other := t.TempDir()
	writeConfig(t, other, ConfigTOML, "[output]\nname = \"Local\"\n")

	cfg, found, err := DiscoverConfig(other)
	if err != nil {
		t.Fatalf("DiscoverConfig() error = %v", err)
	}
	if found != path {
		t.Errorf("found = %q, want %q", found, path)
	}
	if cfg.Output.Name != "FromEnv" {
		t.Errorf("output.name = %q, want FromEnv", cfg.Output.Name)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfig(writeConfig(t, dir, "a.yml", "output:\n  format: go\n")); err != nil {
		t.Errorf("LoadConfig(yml) error = %v", err)
	}
	if _, err := LoadConfig(writeConfig(t, dir, "a.json", "{}")); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if _, err := LoadConfig(writeConfig(t, dir, "b.toml", "[diagnostics]\ncolor = \"rainbow\"\n")); err == nil {
		t.Error("expected error for unknown color")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()

	disabled := false
	base.Merge(&Config{
		Validate: ValidateConfig{Enabled: &disabled, Args: []string{"--x", "{file}"}},
		Output:   OutputConfig{Name: "Blit"},
	})

	if base.Validate.IsEnabled() {
		t.Error("validation enabled after merge, want disabled")
	}
	if diff := cmp.Diff([]string{"--x", "{file}"}, base.Validate.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
	if base.Output.Name != "Blit" || base.Output.Format != "wgsl" {
		t.Errorf("output = %+v", base.Output)
	}

	base.Merge(nil)
	if base.Output.Name != "Blit" {
		t.Error("Merge(nil) changed the config")
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"1h30m", 90 * time.Minute, false},
		{"", 0, false},
		{"invalid", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalText(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if d.Duration != tt.want {
				t.Errorf("UnmarshalText(%q) = %v, want %v", tt.input, d.Duration, tt.want)
			}
		})
	}
}
