package artifact

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bazelbuild/buildtools/build"
)

// DepsFormat is a dependency file format.
type DepsFormat string

const (
	// DepsMake writes a Make/Ninja depfile with phony targets for each input.
	DepsMake DepsFormat = "make"
	// DepsJSON writes {"target": ..., "inputs": [...]}.
	DepsJSON DepsFormat = "json"
	// DepsBazel writes a filegroup listing the inputs.
	DepsBazel DepsFormat = "bazel"
)

// ParseDepsFormat validates a dependency file format name.
func ParseDepsFormat(s string) (DepsFormat, error) {
	switch f := DepsFormat(s); f {
	case DepsMake, DepsJSON, DepsBazel:
		return f, nil
	case "":
		return DepsMake, nil
	}
	return "", fmt.Errorf("unknown deps format %q (expected make, json or bazel)", s)
}

// Deps describes what a build produced and what it read.
type Deps struct {
	// Target is the artifact path.
	Target string

	// Inputs are the files read to produce Target.
	Inputs []string

	// BaseDir, if set, makes paths relative to it where possible.
	BaseDir string
}

// RenderDeps encodes deps in the given format.
func RenderDeps(deps Deps, format DepsFormat) ([]byte, error) {
	target := relTo(deps.BaseDir, deps.Target)
	inputs := make([]string, len(deps.Inputs))
	for i, in := range deps.Inputs {
		inputs[i] = relTo(deps.BaseDir, in)
	}

	switch format {
	case DepsMake, "":
		return renderMake(target, inputs), nil
	case DepsJSON:
		data, err := json.MarshalIndent(struct {
			Target string   `json:"target"`
			Inputs []string `json:"inputs"`
		}{target, inputs}, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case DepsBazel:
		return renderBazel(target, inputs)
	default:
		return nil, fmt.Errorf("unknown deps format %q", format)
	}
}

func renderMake(target string, inputs []string) []byte {
	var b strings.Builder
	b.WriteString(escapeMake(target))
	b.WriteByte(':')
	for _, in := range inputs {
		b.WriteString(" \\\n  ")
		b.WriteString(escapeMake(in))
	}
	b.WriteByte('\n')

	// Phony targets keep make from failing when an input is deleted.
	for _, in := range inputs {
		b.WriteByte('\n')
		b.WriteString(escapeMake(in))
		b.WriteString(":\n")
	}
	return []byte(b.String())
}

var makeEscaper = strings.NewReplacer(
	" ", `\ `,
	"#", `\#`,
	"$", "$$",
)

func escapeMake(p string) string {
	return makeEscaper.Replace(filepath.ToSlash(p))
}

func renderBazel(target string, inputs []string) ([]byte, error) {
	srcs := make([]build.Expr, len(inputs))
	for i, in := range inputs {
		srcs[i] = &build.StringExpr{Value: filepath.ToSlash(in)}
	}

	f := &build.File{
		Path: "BUILD",
		Type: build.TypeBuild,
		Stmt: []build.Expr{&build.CallExpr{
			X: &build.Ident{Name: "filegroup"},
			List: []build.Expr{
				attr("name", &build.StringExpr{Value: bazelName(target)}),
				attr("srcs", &build.ListExpr{List: srcs, ForceMultiLine: true}),
			},
			ForceMultiLine: true,
		}},
	}
	return build.Format(f), nil
}

func attr(name string, value build.Expr) *build.AssignExpr {
	return &build.AssignExpr{LHS: &build.Ident{Name: name}, Op: "=", RHS: value}
}

// bazelName turns a target path into a rule name: "gen/mesh.wgsl" gives "mesh_wgsl_inputs".
func bazelName(target string) string {
	base := filepath.Base(target)
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String() + "_inputs"
}

func relTo(base, p string) string {
	if base == "" {
		return p
	}
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}
