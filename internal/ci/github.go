package ci

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// writeSummary appends a Markdown section for r to the job summary.
func writeSummary(path string, r Result) error {
	if path == "" {
		return nil
	}
	return appendTo(path, func(w io.Writer) {
		fmt.Fprintf(w, "### wgslinc: `%s`\n\n", r.Shader)
		fmt.Fprintln(w, "| Status | Output | Inputs |")
		fmt.Fprintln(w, "|--------|--------|--------|")
		fmt.Fprintf(w, "| %s | %s | %d |\n", statusCell(r.Status), codeCell(r.Output), r.Inputs)
		fmt.Fprintln(w)

		if r.Status == StatusFailed && r.Message != "" {
			fmt.Fprintln(w, "<details>")
			fmt.Fprintf(w, "<summary>%s</summary>\n\n", r.Kind)
			fmt.Fprintln(w, "```")
			fmt.Fprintln(w, strings.TrimRight(r.Message, "\n"))
			fmt.Fprintln(w, "```")
			fmt.Fprintln(w, "</details>")
			fmt.Fprintln(w)
		}
	})
}

// writeOutputs appends step outputs for r.
func writeOutputs(path string, r Result) error {
	if path == "" {
		return nil
	}
	return appendTo(path, func(w io.Writer) {
		fmt.Fprintf(w, "status=%s\n", r.Status)
		fmt.Fprintf(w, "inputs=%d\n", r.Inputs)
		if r.Kind != "" {
			fmt.Fprintf(w, "kind=%s\n", r.Kind)
		}
	})
}

func appendTo(path string, write func(io.Writer)) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	write(f)
	return f.Close()
}

func statusCell(s Status) string {
	switch s {
	case StatusOK:
		return "✅ ok"
	case StatusStale:
		return "⚠️ stale"
	default:
		return "❌ failed"
	}
}

func codeCell(s string) string {
	if s == "" || s == "-" {
		return "stdout"
	}
	return "`" + s + "`"
}
