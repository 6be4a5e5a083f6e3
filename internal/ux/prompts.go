package ux

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm asks a yes/no question on out and reads one line from in. It is
// the fallback when no terminal is attached, so scripts can pipe the answer.
// An empty answer or a read failure returns defaultYes.
func Confirm(in io.Reader, out io.Writer, message string, defaultYes bool) bool {
	hint := "(y/N)"
	if defaultYes {
		hint = "(Y/n)"
	}
	fmt.Fprintf(out, "%s %s: ", message, hint) //nolint:errcheck // prompt output is best effort

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return defaultYes
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "":
		return defaultYes
	case "y", "yes":
		return true
	default:
		return false
	}
}
