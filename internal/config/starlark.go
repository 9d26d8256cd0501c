package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.starlark.net/starlark"
)

// DefaultStarlarkTimeout is the default execution timeout for Starlark config files.
const DefaultStarlarkTimeout = 5 * time.Second

// ErrConfigureNotFound is returned when config.sky doesn't define configure().
var ErrConfigureNotFound = errors.New("config.sky must define a configure() function")

// ErrConfigureReturnType is returned when configure() doesn't return a dict.
var ErrConfigureReturnType = errors.New("configure() must return a dict")

// LoadStarlarkConfig loads a configuration from a Starlark file defining
// configure(). Execution is sandboxed: no load(), no filesystem access,
// and a timeout.
func LoadStarlarkConfig(path string, timeout time.Duration) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	thread := &starlark.Thread{Name: path}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel("execution timeout")
		case <-done:
		}
	}()
	defer close(done)

	globals, err := starlark.ExecFile(thread, path, data, configPredeclared())
	if err != nil {
		return nil, fmt.Errorf("executing config %s: %w", path, err)
	}

	configureFn, ok := globals["configure"]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrConfigureNotFound)
	}
	fn, ok := configureFn.(*starlark.Function)
	if !ok {
		return nil, fmt.Errorf("%s: configure must be a function, got %s", path, configureFn.Type())
	}

	result, err := starlark.Call(thread, fn, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: calling configure(): %w", path, err)
	}

	dict, ok := result.(*starlark.Dict)
	if !ok {
		return nil, fmt.Errorf("%s: %w, got %s", path, ErrConfigureReturnType, result.Type())
	}

	cfg, err := dictToConfig(dict)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func configPredeclared() starlark.StringDict {
	return starlark.StringDict{
		"getenv":    starlark.NewBuiltin("getenv", builtinGetenv),
		"host_os":   starlark.String(runtime.GOOS),
		"host_arch": starlark.String(runtime.GOARCH),
		"duration":  starlark.NewBuiltin("duration", builtinDuration),
	}
}

// builtinGetenv implements getenv(name, default="") -> string.
func builtinGetenv(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var defaultVal starlark.String
	if err := starlark.UnpackArgs("getenv", args, kwargs, "name", &name, "default?", &defaultVal); err != nil {
		return nil, err
	}

	if val := os.Getenv(name); val != "" {
		return starlark.String(val), nil
	}
	return defaultVal, nil
}

// builtinDuration implements duration(s) -> string, rejecting malformed durations early.
func builtinDuration(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	if err := starlark.UnpackArgs("duration", args, kwargs, "s", &s); err != nil {
		return nil, err
	}
	if _, err := time.ParseDuration(s); err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return starlark.String(s), nil
}

func dictToConfig(d *starlark.Dict) (*Config, error) {
	cfg := DefaultConfig()

	for _, item := range d.Items() {
		key, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("config keys must be strings, got %s", item[0].Type())
		}
		section, ok := item[1].(*starlark.Dict)
		if !ok {
			return nil, fmt.Errorf("%s must be a dict, got %s", key, item[1].Type())
		}

		var err error
		switch key {
		case "validate":
			err = parseValidateConfig(section, &cfg.Validate)
		case "output":
			err = parseOutputConfig(section, &cfg.Output)
		case "diagnostics":
			err = parseDiagnosticsConfig(section, &cfg.Diagnostics)
		default:
			err = fmt.Errorf("unknown section %q", key)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s config: %w", key, err)
		}
	}

	return cfg, nil
}

func parseValidateConfig(d *starlark.Dict, cfg *ValidateConfig) error {
	if v, found, _ := d.Get(starlark.String("enabled")); found {
		b, ok := v.(starlark.Bool)
		if !ok {
			return fmt.Errorf("enabled must be a bool, got %s", v.Type())
		}
		enabled := bool(b)
		cfg.Enabled = &enabled
	}

	if err := getString(d, "command", &cfg.Command); err != nil {
		return err
	}

	if v, found, _ := d.Get(starlark.String("args")); found {
		list, ok := v.(*starlark.List)
		if !ok {
			return fmt.Errorf("args must be a list, got %s", v.Type())
		}
		cfg.Args = nil
		for i := 0; i < list.Len(); i++ {
			s, ok := starlark.AsString(list.Index(i))
			if !ok {
				return fmt.Errorf("args[%d] must be a string", i)
			}
			cfg.Args = append(cfg.Args, s)
		}
	}

	if err := getString(d, "wasm", &cfg.Wasm); err != nil {
		return err
	}

	var timeout string
	if err := getString(d, "timeout", &timeout); err != nil {
		return err
	}
	if timeout != "" {
		dur, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", timeout, err)
		}
		cfg.Timeout = Duration{dur}
	}
	return nil
}

func parseOutputConfig(d *starlark.Dict, cfg *OutputConfig) error {
	for key, dst := range map[string]*string{
		"format":      &cfg.Format,
		"package":     &cfg.Package,
		"name":        &cfg.Name,
		"deps_format": &cfg.DepsFormat,
	} {
		if err := getString(d, key, dst); err != nil {
			return err
		}
	}
	return nil
}

func parseDiagnosticsConfig(d *starlark.Dict, cfg *DiagnosticsConfig) error {
	if err := getString(d, "format", &cfg.Format); err != nil {
		return err
	}
	return getString(d, "color", &cfg.Color)
}

// getString stores d[key] in dst if present.
func getString(d *starlark.Dict, key string, dst *string) error {
	v, found, _ := d.Get(starlark.String(key))
	if !found {
		return nil
	}
	s, ok := starlark.AsString(v)
	if !ok {
		return fmt.Errorf("%s must be a string, got %s", key, v.Type())
	}
	*dst = s
	return nil
}
