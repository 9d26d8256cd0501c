package include

import (
	"errors"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrInvalidUTF8 is the cause attached to ErrFileRead for non UTF-8 input.
var ErrInvalidUTF8 = errors.New("stream did not contain valid UTF-8")

// FileSystem is the file access the resolver needs.
type FileSystem interface {
	// ReadFile returns the raw contents of the file at path.
	ReadFile(path string) ([]byte, error)

	// Canonicalize returns the absolute path with "..", "." and
	// symbolic links resolved. It fails if the path does not exist.
	Canonicalize(path string) (string, error)
}

// OSFileSystem reads from the host file system.
type OSFileSystem struct{}

// ReadFile implements FileSystem.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Canonicalize implements FileSystem.
func (OSFileSystem) Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// decode validates UTF-8 and drops a leading byte order mark.
func decode(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}
	out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
