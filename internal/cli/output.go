package cli

import (
	"fmt"
	"io"
)

// Writef writes formatted output to w, ignoring write errors.
// There is no reasonable recovery from a failed write to stdout or stderr.
//
//	cli.Writef(stderr, "wgslinc: %v\n", err)
func Writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// Writeln writes a line to w, ignoring write errors.
//
//	cli.Writeln(stderr) // blank line
func Writeln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

// Write writes a string to w, ignoring write errors.
//
//	cli.Write(stdout, diff)
func Write(w io.Writer, s string) {
	_, _ = io.WriteString(w, s)
}

// WriteBytes writes bytes to w, ignoring write errors.
//
//	cli.WriteBytes(stdout, artifact)
func WriteBytes(w io.Writer, b []byte) {
	_, _ = w.Write(b)
}
