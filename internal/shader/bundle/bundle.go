// Package bundle is the build step: it resolves a root shader, validates
// the flattened text and produces the artifact descriptor a build embeds.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"slices"

	"github.com/albertocavalcante/wgslinc/internal/shader/include"
	"github.com/albertocavalcante/wgslinc/internal/shader/validator"
)

// PlaceholderLabel labels the descriptor returned alongside a failure.
const PlaceholderLabel = "dummy error placeholder"

// Descriptor is the artifact handed to the build.
type Descriptor struct {
	// Label is the canonical absolute path of the root file.
	Label string `json:"label"`

	// Source is the flattened, validated shader text.
	Source string `json:"source"`

	// Inputs is every file read to produce Source, root first. On a
	// placeholder it lists the files the failed build depended on so far,
	// including the one it failed on.
	Inputs []string `json:"inputs"`

	// Placeholder marks a degenerate descriptor emitted with a failure.
	// It must never be used as build output.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Placeholder returns the degenerate descriptor emitted next to a build
// failure so that code depending on the artifact still type-checks.
func Placeholder() *Descriptor {
	return &Descriptor{Label: PlaceholderLabel, Placeholder: true}
}

// InputShapeError reports a build request that does not name exactly one path.
type InputShapeError struct {
	Msg string
}

func (e *InputShapeError) Error() string {
	return e.Msg
}

// ParseArgs returns the single path argument of a build request.
func ParseArgs(args []string) (string, error) {
	switch {
	case len(args) == 0:
		return "", &InputShapeError{Msg: "empty input, but expected a single shader path"}
	case len(args) > 1:
		return "", &InputShapeError{Msg: fmt.Sprintf("expected a single shader path, but found %d arguments", len(args))}
	case args[0] == "":
		return "", &InputShapeError{Msg: "shader path is empty"}
	}
	return args[0], nil
}

// Request describes one build of one root shader.
type Request struct {
	// Path names the root shader.
	Path string

	// RefFile is the file making the request. A relative Path is resolved
	// against its directory; if empty, against the working directory.
	RefFile string

	// Validator checks the flattened text. Nil skips validation.
	Validator *validator.Runner

	// FileSystem overrides the host file system.
	FileSystem include.FileSystem
}

// RootPath returns the root path as referenced, joined to the directory
// of RefFile when relative.
func (r Request) RootPath() string {
	if r.RefFile == "" || filepath.IsAbs(r.Path) {
		return r.Path
	}
	return filepath.Join(filepath.Dir(r.RefFile), r.Path)
}

// Build resolves, then validates. Validation runs only once resolution has
// fully succeeded. On failure Build returns a placeholder together with
// the error; on success the descriptor is complete.
func Build(ctx context.Context, req Request) (*Descriptor, error) {
	if req.Path == "" {
		return Placeholder(), &InputShapeError{Msg: "shader path is empty"}
	}

	fsys := req.FileSystem
	if fsys == nil {
		fsys = include.OSFileSystem{}
	}
	var read []string
	resolver := include.New(
		include.WithFileSystem(fsys),
		include.WithTracker(func(path string) { read = append(read, path) }),
	)

	root := req.RootPath()
	b, err := resolver.Resolve(root)
	if err != nil {
		return failed(read, err), err
	}
	log.Printf("resolved %s (%d dependencies, %d bytes)", b.Root, len(b.Dependencies), len(b.Source))

	if req.Validator != nil {
		if err := req.Validator.Validate(ctx, root, b.Source); err != nil {
			return failed(b.Inputs(), err), err
		}
		log.Printf("validated %s", root)
	}

	return &Descriptor{
		Label:  b.Root,
		Source: b.Source,
		Inputs: b.Inputs(),
	}, nil
}

// failed returns the placeholder for a build that read inputs before
// failing with err. A file the resolver could not read or find is added
// so that creating or fixing it can be noticed.
func failed(inputs []string, err error) *Descriptor {
	d := Placeholder()
	d.Inputs = inputs

	var ierr *include.Error
	if errors.As(err, &ierr) {
		for _, p := range []string{ierr.From, ierr.Path} {
			if p != "" && !slices.Contains(d.Inputs, p) {
				d.Inputs = append(d.Inputs, p)
			}
		}
	}
	return d
}
