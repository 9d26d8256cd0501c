// Package config loads wgslinc configuration.
//
// Three formats are accepted:
//   - config.sky: Starlark, a configure() function returning a dict
//   - wgslinc.toml: declarative TOML
//   - wgslinc.yaml: declarative YAML
//
// Files are discovered by walking up from the working directory to the
// enclosing git root. The WGSLINC_CONFIG environment variable or the
// -config flag name a file explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config file names in priority order.
const (
	ConfigSky  = "config.sky"
	ConfigTOML = "wgslinc.toml"
	ConfigYAML = "wgslinc.yaml"
)

// EnvConfig is the environment variable naming a config file.
const EnvConfig = "WGSLINC_CONFIG"

// ErrConflict is returned when multiple config files exist in the same directory.
var ErrConflict = errors.New("multiple config files found in the same directory; use only one")

// Config is the wgslinc configuration.
type Config struct {
	Validate    ValidateConfig    `json:"validate" toml:"validate" yaml:"validate"`
	Output      OutputConfig      `json:"output" toml:"output" yaml:"output"`
	Diagnostics DiagnosticsConfig `json:"diagnostics" toml:"diagnostics" yaml:"diagnostics"`
}

// ValidateConfig configures the shader validator.
type ValidateConfig struct {
	// Enabled turns validation on or off. Nil means on.
	Enabled *bool `json:"enabled,omitempty" toml:"enabled" yaml:"enabled"`

	// Command is the validator executable (default "naga").
	Command string `json:"command" toml:"command" yaml:"command"`

	// Args is the argument template. {file} expands to the temporary
	// file holding the flattened source and {path} to the root path.
	Args []string `json:"args" toml:"args" yaml:"args"`

	// Wasm is a WASI build of the validator. When set it is used
	// instead of Command.
	Wasm string `json:"wasm" toml:"wasm" yaml:"wasm"`

	// Timeout bounds a single validator run.
	Timeout Duration `json:"timeout" toml:"timeout" yaml:"timeout"`
}

// IsEnabled reports whether validation should run.
func (v ValidateConfig) IsEnabled() bool {
	return v.Enabled == nil || *v.Enabled
}

// OutputConfig configures the emitted artifact.
type OutputConfig struct {
	// Format is wgsl, go or json.
	Format string `json:"format" toml:"format" yaml:"format"`

	// Package is the Go package for the go format.
	Package string `json:"package" toml:"package" yaml:"package"`

	// Name prefixes the generated Go constants.
	Name string `json:"name" toml:"name" yaml:"name"`

	// DepsFormat is make, json or bazel.
	DepsFormat string `json:"deps_format" toml:"deps_format" yaml:"deps_format"`
}

// DiagnosticsConfig configures error reporting.
type DiagnosticsConfig struct {
	// Format is text, json, github or lsp.
	Format string `json:"format" toml:"format" yaml:"format"`

	// Color is auto, always or never.
	Color string `json:"color" toml:"color" yaml:"color"`
}

// Duration wraps time.Duration for string parsing in every format.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	if d.Duration == 0 {
		return nil, nil
	}
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a string", node.Line)
	}
	return d.UnmarshalText([]byte(node.Value))
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Validate: ValidateConfig{
			Command: "naga",
			Args:    []string{"{file}"},
			Timeout: Duration{30 * time.Second},
		},
		Output: OutputConfig{
			Format:     "wgsl",
			Package:    "shaders",
			DepsFormat: "make",
		},
		Diagnostics: DiagnosticsConfig{
			Format: "text",
			Color:  "auto",
		},
	}
}

// Check rejects values no consumer could accept.
func (c *Config) Check() error {
	switch c.Diagnostics.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("diagnostics.color: unknown value %q (expected auto, always or never)", c.Diagnostics.Color)
	}
	if c.Validate.Timeout.Duration < 0 {
		return fmt.Errorf("validate.timeout: must not be negative, got %s", c.Validate.Timeout.Duration)
	}
	return nil
}

// LoadConfig loads configuration from path, picking the format from its
// extension. Values the file leaves unset keep their defaults.
func LoadConfig(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		cfg, err = LoadTOMLConfig(path)
	case ".yaml", ".yml":
		cfg, err = LoadYAMLConfig(path)
	case ".sky", ".star":
		cfg, err = LoadStarlarkConfig(path, DefaultStarlarkTimeout)
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s (expected .sky, .toml or .yaml)", ext)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// DiscoverConfig searches for a configuration file.
//
// Resolution order:
//  1. If WGSLINC_CONFIG is set, use that path
//  2. Walk up from startDir, stopping at the git root
//
// Returns the loaded config and its path. If no config is found, returns
// (DefaultConfig(), "", nil).
func DiscoverConfig(startDir string) (*Config, string, error) {
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		cfg, err := LoadConfig(envPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading config from %s: %w", EnvConfig, err)
		}
		return cfg, envPath, nil
	}

	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("getting working directory: %w", err)
		}
	}

	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving path: %w", err)
	}

	gitRoot := findGitRoot(absDir)

	dir := absDir
	for {
		configPath, err := findConfigInDir(dir)
		if err != nil {
			return nil, "", err
		}
		if configPath != "" {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return nil, "", err
			}
			return cfg, configPath, nil
		}

		if gitRoot != "" && dir == gitRoot {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return DefaultConfig(), "", nil
}

// findConfigInDir returns the config file in dir, "" if there is none,
// or ErrConflict if there are several.
func findConfigInDir(dir string) (string, error) {
	var found []string
	for _, name := range []string{ConfigSky, ConfigTOML, ConfigYAML} {
		if fileExists(filepath.Join(dir, name)) {
			found = append(found, name)
		}
	}

	switch len(found) {
	case 0:
		return "", nil
	case 1:
		return filepath.Join(dir, found[0]), nil
	default:
		return "", fmt.Errorf("%w: found %s in %s", ErrConflict, strings.Join(found, ", "), dir)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// findGitRoot returns the enclosing git repository root, or "".
func findGitRoot(startDir string) string {
	dir := startDir
	for {
		if fileExists(filepath.Join(dir, ".git")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Merge merges other into c. Non-zero values from other override c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Validate.Enabled != nil {
		enabled := *other.Validate.Enabled
		c.Validate.Enabled = &enabled
	}
	if other.Validate.Command != "" {
		c.Validate.Command = other.Validate.Command
	}
	if len(other.Validate.Args) > 0 {
		c.Validate.Args = append([]string(nil), other.Validate.Args...)
	}
	if other.Validate.Wasm != "" {
		c.Validate.Wasm = other.Validate.Wasm
	}
	if other.Validate.Timeout.Duration != 0 {
		c.Validate.Timeout = other.Validate.Timeout
	}

	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.Package != "" {
		c.Output.Package = other.Output.Package
	}
	if other.Output.Name != "" {
		c.Output.Name = other.Output.Name
	}
	if other.Output.DepsFormat != "" {
		c.Output.DepsFormat = other.Output.DepsFormat
	}

	if other.Diagnostics.Format != "" {
		c.Diagnostics.Format = other.Diagnostics.Format
	}
	if other.Diagnostics.Color != "" {
		c.Diagnostics.Color = other.Diagnostics.Color
	}
}
