// Package filekind defines the types of shader files recognized by wgslinc.
package filekind

import (
	"path/filepath"
	"strings"
)

// Kind represents the type of shader file.
type Kind string

const (
	// KindWGSL is a complete WGSL module (.wgsl).
	KindWGSL Kind = "wgsl"

	// KindGLSL is a GLSL stage source (.vert, .frag, .comp).
	KindGLSL Kind = "glsl"

	// KindInclude is a fragment meant only to be included
	// (.inc, .wgsli, .wgsl.inc).
	KindInclude Kind = "include"

	// KindUnknown indicates an unrecognized file type.
	KindUnknown Kind = "unknown"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// IsModule returns true if this kind is a standalone shader module whose
// extension already selects a validator front end.
func (k Kind) IsModule() bool {
	switch k {
	case KindWGSL, KindGLSL:
		return true
	}
	return false
}

// Classify returns the kind of the file at path, based on its name.
func Classify(path string) Kind {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".wgsl.inc") {
		return KindInclude
	}
	switch filepath.Ext(name) {
	case ".wgsl":
		return KindWGSL
	case ".vert", ".frag", ".comp":
		return KindGLSL
	case ".inc", ".wgsli":
		return KindInclude
	}
	return KindUnknown
}
