// Package include flattens WGSL sources by expanding `#include "path"` directives.
//
// A directive is a line that starts with the exact prefix `#include "`.
// The quoted path is resolved relative to the directory of the file that
// contains the directive, and the directive line is replaced by the fully
// expanded text of the target. Every other line is copied verbatim.
//
// Expansion is depth-first and memoized per call to Resolve: a file that is
// reachable through several include chains (a diamond) is read once, and a
// file that includes itself, directly or transitively, is reported as a
// circular include.
//
//	b, err := include.Resolve("shaders/mesh.wgsl")
//	if err != nil {
//		return err
//	}
//	fmt.Print(b.Source)
package include

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Directive is the literal line prefix that marks an include.
const Directive = `#include "`

// State is the load state of one file within a single resolution.
type State int

const (
	// Unseen means the file has not been visited.
	Unseen State = iota
	// Loading means the file is on the active traversal stack.
	Loading
	// Loaded means the flattened text of the file is final.
	Loaded
)

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case Unseen:
		return "unseen"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Bundle is the result of a successful resolution.
type Bundle struct {
	// Root is the canonical absolute path of the root file.
	Root string

	// Source is the flattened text of the root file.
	Source string

	// Dependencies lists every other file read while flattening Root,
	// in first-load order, each exactly once.
	Dependencies []string
}

// Inputs returns the complete build-input set: Root followed by Dependencies.
func (b *Bundle) Inputs() []string {
	inputs := make([]string, 0, len(b.Dependencies)+1)
	inputs = append(inputs, b.Root)
	return append(inputs, b.Dependencies...)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFileSystem replaces the host file system.
func WithFileSystem(fs FileSystem) Option {
	return func(r *Resolver) {
		r.fs = fs
	}
}

// WithTracker registers fn to be called once for every file read during a
// resolution, including the root. Build integrations use it to register
// build inputs as they are discovered.
func WithTracker(fn func(path string)) Option {
	return func(r *Resolver) {
		r.track = fn
	}
}

// Resolver expands include directives. A Resolver holds no per-call state
// and may be shared between goroutines.
type Resolver struct {
	fs    FileSystem
	track func(path string)
}

// New creates a Resolver reading from the host file system.
func New(opts ...Option) *Resolver {
	r := &Resolver{fs: OSFileSystem{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve flattens the file at rootPath using the host file system.
func Resolve(rootPath string) (*Bundle, error) {
	return New().Resolve(rootPath)
}

// Resolve flattens the file at rootPath. Every failure is terminal and is
// reported as an *Error; no partial result is returned.
func (r *Resolver) Resolve(rootPath string) (*Bundle, error) {
	root, err := r.fs.Canonicalize(rootPath)
	if err != nil {
		return nil, &Error{Kind: ErrCanonicalize, Path: rootPath, Err: err}
	}

	s := &session{
		fs:    r.fs,
		track: r.track,
		files: make(map[string]*entry),
	}
	source, err := s.load(root, "", 0)
	if err != nil {
		return nil, err
	}

	deps := make([]string, 0, len(s.order))
	for _, p := range s.order {
		if p != root {
			deps = append(deps, p)
		}
	}

	return &Bundle{
		Root:         root,
		Source:       source,
		Dependencies: deps,
	}, nil
}

type entry struct {
	state State
	text  string
}

// session is the resolution context of one Resolve call.
type session struct {
	fs    FileSystem
	track func(path string)

	files map[string]*entry
	order []string
}

func (s *session) state(path string) State {
	if e, ok := s.files[path]; ok {
		return e.state
	}
	return Unseen
}

func (s *session) markLoading(path string) {
	if st := s.state(path); st != Unseen {
		panic(fmt.Sprintf("include: %s is %s, cannot start loading it", path, st))
	}
	s.files[path] = &entry{state: Loading}
	s.order = append(s.order, path)
}

func (s *session) markLoaded(path, text string) {
	e, ok := s.files[path]
	if !ok || e.state != Loading {
		panic(fmt.Sprintf("include: %s finished without being loaded", path))
	}
	e.state = Loaded
	e.text = text
}

// load returns the flattened text of the canonical path. from and line
// locate the directive that requested it, and are empty for the root.
func (s *session) load(path, from string, line int) (string, error) {
	switch s.state(path) {
	case Loading:
		return "", &Error{Kind: ErrCircularInclude, Path: path, From: from, Line: line}
	case Loaded:
		return s.files[path].text, nil
	}
	s.markLoading(path)

	raw, err := s.fs.ReadFile(path)
	if err != nil {
		return "", &Error{Kind: ErrFileRead, Path: path, From: from, Line: line, Err: err}
	}
	if s.track != nil {
		s.track(path)
	}
	text, err := decode(raw)
	if err != nil {
		return "", &Error{Kind: ErrFileRead, Path: path, From: from, Line: line, Err: err}
	}

	var out strings.Builder
	out.Grow(len(text))
	dir := filepath.Dir(path)

	for i, l := range splitLines(text) {
		lineNum := i + 1

		rest, ok := strings.CutPrefix(l, Directive)
		if !ok {
			out.WriteString(l)
			out.WriteByte('\n')
			continue
		}

		end := strings.IndexByte(rest, '"')
		if end < 0 {
			return "", &Error{Kind: ErrMalformedInclude, Path: path, Line: lineNum}
		}

		joined := rest[:end]
		if !filepath.IsAbs(joined) {
			joined = filepath.Join(dir, joined)
		}
		target, err := s.fs.Canonicalize(joined)
		if err != nil {
			return "", &Error{Kind: ErrCanonicalize, Path: joined, From: path, Line: lineNum, Err: err}
		}

		content, err := s.load(target, path, lineNum)
		if err != nil {
			return "", err
		}
		out.WriteString(content)
	}

	result := out.String()
	s.markLoaded(path, result)
	return result, nil
}

// splitLines splits on "\n" and strips one trailing "\r" from each line.
// A terminator at the very end does not start a new line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
