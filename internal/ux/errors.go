package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/cjl-github/chiwen/internal/errors"
)

// FormatError renders err for the terminal. A ConsoleError shows its code,
// message, cause and suggestions on separate lines; other errors print as is.
func FormatError(err error, s Styles) string {
	if err == nil {
		return ""
	}

	ce, ok := errors.As(err)
	if !ok {
		return s.Error.Render("Error: ") + err.Error()
	}

	var b strings.Builder
	b.WriteString(s.Error.Render(fmt.Sprintf("Error [%s]: ", ce.Code)))
	b.WriteString(ce.Message)
	if ce.StatusCode != 0 {
		b.WriteString(s.Muted.Render(fmt.Sprintf(" (HTTP %d)", ce.StatusCode)))
	}
	if ce.Cause != nil {
		b.WriteString("\n  ")
		b.WriteString(s.Muted.Render(ce.Cause.Error()))
	}
	if len(ce.Suggestions) > 0 {
		b.WriteString("\n\n")
		b.WriteString(s.Key.Render("Suggestions:"))
		for _, suggestion := range ce.Suggestions {
			b.WriteString("\n  • ")
			b.WriteString(suggestion)
		}
	}
	if ce.DocsURL != "" {
		b.WriteString("\n\n")
		b.WriteString(s.Muted.Render("Documentation: " + ce.DocsURL))
	}
	return b.String()
}

// PrintError writes FormatError(err) followed by a newline.
func PrintError(w io.Writer, err error, s Styles) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, FormatError(err, s)) //nolint:errcheck // best effort to stderr
}
