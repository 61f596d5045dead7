package diagnostics

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiRed   = "\x1b[1;31m"
	ansiBlue  = "\x1b[1;34m"
	ansiReset = "\x1b[0m"
)

// UseColor reports whether output to f should be coloured.
func UseColor(f *os.File) bool {
	// NO_COLOR convention: https://no-color.org/
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Render writes one block per diagnostic.
func Render(w io.Writer, errs []*DiagnosticError, color bool) {
	for _, e := range errs {
		errLabel, noteLabel := "error", "note"
		if color {
			errLabel = ansiRed + errLabel + ansiReset
			noteLabel = ansiBlue + noteLabel + ansiReset
		}
		fmt.Fprintf(w, "%s[%s]: %s\n", errLabel, e.Code, e.Message)
		if !e.Span.IsZero() {
			fmt.Fprintf(w, "  --> %s\n", e.Span)
		}
		for _, n := range e.Notes {
			fmt.Fprintf(w, "  = %s: %s\n", noteLabel, n)
		}
	}
}
