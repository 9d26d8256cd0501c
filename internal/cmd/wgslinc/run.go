// Package wgslinc implements the wgslinc command: flatten a shader's
// #include graph, validate the result and emit it as a build artifact.
package wgslinc

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/albertocavalcante/wgslinc/internal/artifact"
	"github.com/albertocavalcante/wgslinc/internal/ci"
	"github.com/albertocavalcante/wgslinc/internal/cli"
	"github.com/albertocavalcante/wgslinc/internal/config"
	"github.com/albertocavalcante/wgslinc/internal/report"
	"github.com/albertocavalcante/wgslinc/internal/shader/bundle"
	"github.com/albertocavalcante/wgslinc/internal/shader/validator"
	"github.com/albertocavalcante/wgslinc/internal/version"
	"github.com/albertocavalcante/wgslinc/internal/watch"
)

// Run executes wgslinc with the given arguments.
// Returns exit code.
func Run(args []string) int {
	return RunWithIO(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

// options is the effective configuration of one invocation.
type options struct {
	out                string
	format             artifact.Format
	goOpts             artifact.GoOptions
	depfile            string
	depsFormat         artifact.DepsFormat
	from               string
	check              bool
	watch              bool
	placeholderOnError bool

	validator *validator.Runner
	reporter  report.Reporter
}

// RunWithIO allows custom IO for embedding/testing.
func RunWithIO(ctx context.Context, args []string, _ io.Reader, stdout, stderr io.Writer) int {
	var (
		outFlag              string
		formatFlag           string
		packageFlag          string
		nameFlag             string
		depfileFlag          string
		depsFormatFlag       string
		fromFlag             string
		configFlag           string
		noValidateFlag       bool
		validatorFlag        string
		validatorWasmFlag    string
		diagnosticsFlag      string
		checkFlag            bool
		watchFlag            bool
		placeholderFlag      bool
		verboseFlag          bool
		versionFlag          bool
		validatorTimeoutFlag time.Duration
	)

	fs := flag.NewFlagSet("wgslinc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&outFlag, "o", "", "write the artifact to `file` instead of stdout")
	fs.StringVar(&formatFlag, "format", "", "artifact format: wgsl, go, json (default wgsl)")
	fs.StringVar(&packageFlag, "package", "", "Go package name for -format=go (default shaders)")
	fs.StringVar(&nameFlag, "name", "", "prefix for generated Go constants (default derived from the file name)")
	fs.StringVar(&depfileFlag, "depfile", "", "write the build inputs to `file`")
	fs.StringVar(&depsFormatFlag, "deps-format", "", "depfile format: make, json, bazel (default make)")
	fs.StringVar(&fromFlag, "from", "", "resolve a relative shader path against the directory of `file`")
	fs.StringVar(&configFlag, "config", "", "config file (default: discover config.sky, wgslinc.toml or wgslinc.yaml)")
	fs.BoolVar(&noValidateFlag, "no-validate", false, "skip shader validation")
	fs.StringVar(&validatorFlag, "validator", "", "validator executable (default naga)")
	fs.StringVar(&validatorWasmFlag, "validator-wasm", "", "run a WASI build of the validator from `module`")
	fs.DurationVar(&validatorTimeoutFlag, "validator-timeout", 0, "timeout for a single validator run (default 30s)")
	fs.StringVar(&diagnosticsFlag, "diagnostics", "", "diagnostics format: text, json, github, lsp (default text)")
	fs.BoolVar(&checkFlag, "check", false, "compare the artifact with -o instead of writing it; exit 2 if stale")
	fs.BoolVar(&watchFlag, "watch", false, "rebuild whenever the shader or one of its includes changes")
	fs.BoolVar(&placeholderFlag, "placeholder-on-error", false, "write a placeholder artifact when the build fails")
	fs.BoolVar(&verboseFlag, "v", false, "verbose logging to stderr")
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")

	fs.Usage = func() {
		cli.Writeln(stderr, "Usage: wgslinc [flags] <shader>")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Flattens #include \"path\" directives in a WGSL shader, validates the")
		cli.Writeln(stderr, "result and writes it as a build artifact.")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Flags:")
		fs.PrintDefaults()
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Examples:")
		cli.Writeln(stderr, "  wgslinc mesh.wgsl                          # Print the flattened shader")
		cli.Writeln(stderr, "  wgslinc -o gen/mesh.wgsl -depfile gen/mesh.d mesh.wgsl")
		cli.Writeln(stderr, "  wgslinc -format go -package gfx -o mesh_wgsl.go mesh.wgsl")
		cli.Writeln(stderr, "  wgslinc -check -o gen/mesh.wgsl mesh.wgsl  # Fail if gen/mesh.wgsl is stale")
		cli.Writeln(stderr, "  wgslinc -watch -o gen/mesh.wgsl mesh.wgsl  # Rebuild on change")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cli.ExitOK
		}
		return cli.ExitError
	}

	if versionFlag {
		cli.Writef(stdout, "wgslinc %s\n", version.String())
		return cli.ExitOK
	}

	if verboseFlag {
		log.SetOutput(stderr)
		log.SetFlags(log.Ltime | log.Lshortfile)
	} else {
		log.SetOutput(io.Discard)
	}

	path, err := bundle.ParseArgs(fs.Args())
	if err != nil {
		cli.Writef(stderr, "wgslinc: %v\n", err)
		fs.Usage()
		return cli.ExitError
	}

	cfg, err := loadConfig(configFlag)
	if err != nil {
		cli.Writef(stderr, "wgslinc: %v\n", err)
		return cli.ExitError
	}

	// Flags override the config file.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	cfg.Merge(&config.Config{
		Validate: config.ValidateConfig{
			Command: validatorFlag,
			Wasm:    validatorWasmFlag,
			Timeout: config.Duration{Duration: validatorTimeoutFlag},
		},
		Output: config.OutputConfig{
			Format:     formatFlag,
			Package:    packageFlag,
			Name:       nameFlag,
			DepsFormat: depsFormatFlag,
		},
		Diagnostics: config.DiagnosticsConfig{Format: diagnosticsFlag},
	})
	if set["validator"] {
		cfg.Validate.Wasm = validatorWasmFlag
	}
	if noValidateFlag {
		disabled := false
		cfg.Validate.Enabled = &disabled
	}

	opts, err := newOptions(cfg, stderr)
	if err != nil {
		cli.Writef(stderr, "wgslinc: %v\n", err)
		return cli.ExitError
	}
	opts.out = outFlag
	opts.depfile = depfileFlag
	opts.from = fromFlag
	opts.check = checkFlag
	opts.watch = watchFlag
	opts.placeholderOnError = placeholderFlag
	if opts.out != "" && opts.out != "-" {
		opts.goOpts.Filename = filepath.Base(opts.out)
	}
	// Name constants after the requested shader so a placeholder declares
	// the same identifiers as a successful build.
	if opts.goOpts.Name == "" {
		opts.goOpts.Name = artifact.ExportedName(path)
	}

	if err := opts.checkCombination(); err != nil {
		cli.Writef(stderr, "wgslinc: %v\n", err)
		return cli.ExitError
	}

	if opts.watch {
		return runWatch(ctx, path, opts, stdout, stderr)
	}
	code, _ := buildOnce(ctx, path, opts, stdout, stderr)
	return code
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	cfg, found, err := config.DiscoverConfig("")
	if err != nil {
		return nil, err
	}
	if found != "" {
		log.Printf("using config %s", found)
	}
	return cfg, nil
}

// newOptions validates cfg and builds the collaborators it describes.
func newOptions(cfg *config.Config, stderr io.Writer) (*options, error) {
	format, err := artifact.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	depsFormat, err := artifact.ParseDepsFormat(cfg.Output.DepsFormat)
	if err != nil {
		return nil, err
	}
	reporter, err := report.New(cfg.Diagnostics.Format, report.ColorEnabled(cfg.Diagnostics.Color, stderr))
	if err != nil {
		return nil, err
	}

	opts := &options{
		format:     format,
		goOpts:     artifact.GoOptions{Package: cfg.Output.Package, Name: cfg.Output.Name},
		depsFormat: depsFormat,
		reporter:   reporter,
	}

	if cfg.Validate.IsEnabled() {
		var v validator.Validator
		if cfg.Validate.Wasm != "" {
			v = &validator.WasmValidator{
				Module:  cfg.Validate.Wasm,
				Args:    cfg.Validate.Args,
				Timeout: cfg.Validate.Timeout.Duration,
			}
		} else {
			v = &validator.ToolValidator{
				Command: cfg.Validate.Command,
				Args:    cfg.Validate.Args,
				Timeout: cfg.Validate.Timeout.Duration,
			}
		}
		opts.validator = validator.NewRunner(v)
		for _, v := range opts.validator.Validators() {
			log.Printf("validating with %s", v.Name())
		}
	}
	return opts, nil
}

func (o *options) toStdout() bool {
	return o.out == "" || o.out == "-"
}

func (o *options) checkCombination() error {
	switch {
	case o.check && o.toStdout():
		return errors.New("-check requires -o")
	case o.check && o.watch:
		return errors.New("-check and -watch are mutually exclusive")
	case o.watch && o.toStdout():
		return errors.New("-watch requires -o")
	case o.depfile != "" && o.toStdout():
		return errors.New("-depfile requires -o")
	case o.placeholderOnError && o.toStdout():
		return errors.New("-placeholder-on-error requires -o")
	}
	return nil
}

// buildOnce runs one build and returns the exit code and the files the
// build depended on. A failed build reports the files it got to, so that
// fixing any of them can trigger a rebuild. Outside watch mode the result
// is also published to the CI system.
func buildOnce(ctx context.Context, path string, o *options, stdout, stderr io.Writer) (int, []string) {
	code, inputs, err := build(ctx, path, o, stdout, stderr)
	if !o.watch {
		o.publish(path, code, len(inputs), err)
	}
	return code, inputs
}

// build does the work of buildOnce and also returns the failure, if any.
func build(ctx context.Context, path string, o *options, stdout, stderr io.Writer) (int, []string, error) {
	req := bundle.Request{
		Path:      path,
		RefFile:   o.from,
		Validator: o.validator,
	}

	d, err := bundle.Build(ctx, req)
	if err != nil {
		if rerr := o.reporter.Report(stderr, err); rerr != nil {
			cli.Writef(stderr, "wgslinc: %v\n", err)
		}
		if o.placeholderOnError && !o.check {
			if perr := o.emit(d, stdout); perr != nil {
				cli.Writef(stderr, "wgslinc: writing placeholder: %v\n", perr)
			}
		}
		return cli.ExitError, d.Inputs, err
	}

	data, err := artifact.Render(d, o.format, o.goOpts)
	if err != nil {
		cli.Writef(stderr, "wgslinc: rendering %s: %v\n", o.format, err)
		return cli.ExitError, d.Inputs, err
	}

	if o.check {
		diff, err := artifact.Diff(o.out, data)
		if err != nil {
			cli.Writef(stderr, "wgslinc: %v\n", err)
			return cli.ExitError, d.Inputs, err
		}
		if diff != "" {
			cli.Write(stdout, diff)
			cli.Writef(stderr, "wgslinc: %s is out of date\n", o.out)
			return cli.ExitWarning, d.Inputs, nil
		}
		return cli.ExitOK, d.Inputs, nil
	}

	if err := o.write(data, stdout); err != nil {
		cli.Writef(stderr, "wgslinc: %v\n", err)
		return cli.ExitError, d.Inputs, err
	}

	if o.depfile != "" {
		if err := o.writeDeps(d.Inputs); err != nil {
			cli.Writef(stderr, "wgslinc: %v\n", err)
			return cli.ExitError, d.Inputs, err
		}
	}

	log.Printf("built %s from %d file(s)", d.Label, len(d.Inputs))
	return cli.ExitOK, d.Inputs, nil
}

func (o *options) publish(path string, code, inputs int, err error) {
	r := ci.Result{Shader: path, Output: o.out, Inputs: inputs}
	switch code {
	case cli.ExitOK:
		r.Status = ci.StatusOK
	case cli.ExitWarning:
		r.Status = ci.StatusStale
	default:
		r.Status = ci.StatusFailed
	}
	if err != nil {
		r.Kind = report.Kind(err)
		r.Message = err.Error()
	}
	if perr := ci.Publish(r); perr != nil {
		log.Printf("publishing CI result: %v", perr)
	}
}

// emit renders and writes d, used for the placeholder artifact.
func (o *options) emit(d *bundle.Descriptor, stdout io.Writer) error {
	data, err := artifact.Render(d, o.format, o.goOpts)
	if err != nil {
		return err
	}
	return o.write(data, stdout)
}

func (o *options) write(data []byte, stdout io.Writer) error {
	if o.toStdout() {
		cli.WriteBytes(stdout, data)
		return nil
	}
	return artifact.WriteFile(o.out, data)
}

func (o *options) writeDeps(inputs []string) error {
	base, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	// Inputs are canonical, so the base must be too.
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}
	target := o.out
	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}

	data, err := artifact.RenderDeps(artifact.Deps{
		Target:  target,
		Inputs:  inputs,
		BaseDir: base,
	}, o.depsFormat)
	if err != nil {
		return err
	}
	return artifact.WriteFile(o.depfile, data)
}

// runWatch builds, then rebuilds whenever one of the last build's inputs
// changes, until ctx is cancelled or the process is interrupted.
func runWatch(ctx context.Context, path string, o *options, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.New()
	if err != nil {
		cli.Writef(stderr, "wgslinc: %v\n", err)
		return cli.ExitError
	}
	defer func() { _ = w.Close() }()

	root, err := filepath.Abs(bundle.Request{Path: path, RefFile: o.from}.RootPath())
	if err != nil {
		cli.Writef(stderr, "wgslinc: %v\n", err)
		return cli.ExitError
	}

	watched := []string{root}
	rebuild := func() {
		_, inputs := buildOnce(ctx, path, o, stdout, stderr)
		if len(inputs) > 0 {
			watched = inputs
		}
		if err := w.Set(watched); err != nil {
			cli.Writef(stderr, "wgslinc: %v\n", err)
		}
		cli.Writef(stderr, "wgslinc: watching %d file(s)\n", len(w.WatchedFiles()))
	}

	rebuild()
	for {
		select {
		case <-ctx.Done():
			return cli.ExitOK
		case ev := <-w.Events:
			log.Printf("changed: %v", ev.Files)
			rebuild()
		case err := <-w.Errors:
			cli.Writef(stderr, "wgslinc: watch: %v\n", err)
		}
	}
}
