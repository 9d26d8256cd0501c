// Package artifact renders build descriptors and dependency files and writes
// them to disk.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"golang.org/x/tools/imports"

	"github.com/albertocavalcante/wgslinc/internal/shader/bundle"
)

// Format is an output format for the flattened shader.
type Format string

const (
	// FormatWGSL writes the flattened source as is.
	FormatWGSL Format = "wgsl"
	// FormatGo writes a Go file declaring the label and source as constants.
	FormatGo Format = "go"
	// FormatJSON writes the descriptor as JSON.
	FormatJSON Format = "json"
)

// Formats lists the supported output formats.
func Formats() []Format {
	return []Format{FormatWGSL, FormatGo, FormatJSON}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (expected wgsl, go or json)", s)
}

// GoOptions configures FormatGo output.
type GoOptions struct {
	// Package is the Go package name. Defaults to "shaders".
	Package string

	// Name prefixes the generated constants. Defaults to the root file
	// name in CamelCase, e.g. "post_fx.wgsl" gives "PostFx".
	Name string

	// Filename is used when formatting the generated code.
	Filename string
}

// Render encodes d in the given format.
func Render(d *bundle.Descriptor, format Format, opts GoOptions) ([]byte, error) {
	switch format {
	case FormatWGSL, "":
		return []byte(d.Source), nil
	case FormatJSON:
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatGo:
		return renderGo(d, opts)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

var goTemplate = template.Must(template.New("go").Parse(`// Code generated by wgslinc. DO NOT EDIT.
{{if .Placeholder}}
// wgslinc failed to build this shader; the constants below are a
// placeholder and must not be used.
{{end}}
package {{.Package}}

// {{.Name}}Label is the resolved path of the root shader.
const {{.Name}}Label = {{.Label}}

// {{.Name}}Source is the flattened shader source.
const {{.Name}}Source = {{.Source}}
`))

func renderGo(d *bundle.Descriptor, opts GoOptions) ([]byte, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = "shaders"
	}
	name := opts.Name
	if name == "" {
		name = ExportedName(d.Label)
	}

	var buf bytes.Buffer
	err := goTemplate.Execute(&buf, map[string]any{
		"Placeholder": d.Placeholder,
		"Package":     pkg,
		"Name":        name,
		"Label":       strconv.Quote(d.Label),
		"Source":      goString(d.Source),
	})
	if err != nil {
		return nil, err
	}

	filename := opts.Filename
	if filename == "" {
		filename = strings.ToLower(name) + "_wgsl.go"
	}
	out, err := imports.Process(filename, buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("formatting generated Go: %w", err)
	}
	return out, nil
}

// goString returns a Go literal for s, preferring a raw string.
func goString(s string) string {
	if !strings.ContainsAny(s, "`\r") && utf8Printable(s) {
		return "`" + s + "`"
	}
	return strconv.Quote(s)
}

func utf8Printable(s string) bool {
	for _, r := range s {
		if r == '\n' || r == '\t' {
			continue
		}
		if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// ExportedName derives a Go identifier from a file path:
// "shaders/post_fx.wgsl" gives "PostFx".
func ExportedName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}

	var b strings.Builder
	upper := true
	for _, r := range base {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}

	name := b.String()
	if name == "" {
		return "Shader"
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "Shader" + name
	}
	return name
}
