package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadTOMLConfig loads a configuration from a TOML file.
func LoadTOMLConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var file Config
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, fmt.Errorf("parsing TOML config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing TOML config %s: unknown key %q", path, undecoded[0].String())
	}

	cfg := DefaultConfig()
	cfg.Merge(&file)
	return cfg, nil
}

// LoadYAMLConfig loads a configuration from a YAML file.
func LoadYAMLConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var file Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing YAML config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	cfg.Merge(&file)
	return cfg, nil
}
