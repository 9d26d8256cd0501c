package validator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/albertocavalcante/wgslinc/internal/shader/filekind"
)

// wasmMount is where the directory holding the source is mounted in the guest.
const wasmMount = "/work"

// WasmValidator runs a WASI build of the shader translator in-process,
// so builds need no host toolchain. Arguments follow ToolValidator; {file}
// expands to the guest path of the source.
type WasmValidator struct {
	// Module is the path to the .wasm binary.
	Module string

	// Args is the argument template. Defaults to DefaultArgs.
	Args []string

	// Timeout bounds one run. Defaults to DefaultTimeout.
	Timeout time.Duration

	// ParseMarkers classify output as a parse failure. Defaults to DefaultParseMarkers.
	ParseMarkers []string

	// Kinds restricts the file kinds this validator applies to.
	// Empty means every root is validated.
	Kinds []filekind.Kind
}

// Name implements the Validator interface.
func (w *WasmValidator) Name() string {
	return strings.TrimSuffix(filepath.Base(w.Module), ".wasm")
}

// SupportedKinds implements the Validator interface.
func (w *WasmValidator) SupportedKinds() []filekind.Kind {
	return w.Kinds
}

// Validate implements the Validator interface.
func (w *WasmValidator) Validate(ctx context.Context, in Input) (Result, error) {
	if w.Module == "" {
		return Result{}, errors.New("no wasm module configured")
	}
	wasmBytes, err := os.ReadFile(w.Module)
	if err != nil {
		return Result{}, err
	}

	dir, err := os.MkdirTemp("", "wgslinc-wasm-")
	if err != nil {
		return Result{}, fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	base := sourceName(in)
	if err := os.WriteFile(filepath.Join(dir, base), []byte(in.Source), 0o644); err != nil {
		return Result{}, fmt.Errorf("writing source: %w", err)
	}
	guestFile := path.Join(wasmMount, base)

	ctx, cancel := context.WithTimeout(ctx, orDefault(w.Timeout, DefaultTimeout))
	defer cancel()

	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer func() { _ = runtime.Close(ctx) }()

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return Result{}, err
	}

	var out bytes.Buffer
	argv := append([]string{w.Name()}, expandArgs(argsOrDefault(w.Args), guestFile, in.Path)...)
	config := wazero.NewModuleConfig().
		WithArgs(argv...).
		WithStdout(&out).
		WithStderr(&out).
		WithFSConfig(wazero.NewFSConfig().WithDirMount(dir, wasmMount))

	exitCode := 0
	if _, err := runtime.InstantiateWithConfig(ctx, wasmBytes, config); err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("%s timed out: %w", w.Name(), ctx.Err())
		}
		var exitErr *sys.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, err
		}
		exitCode = int(exitErr.ExitCode())
	}

	return interpret(exitCode, out.String(), guestFile, in.Path, w.ParseMarkers), nil
}
