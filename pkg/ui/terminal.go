// Package ui provides minimal colored terminal output for the CLI,
// separate from structured logging.
package ui

import (
	"fmt"
	"io"
	"os"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Terminal prints user-facing messages to stdout/stderr
type Terminal struct {
	out   io.Writer
	err   io.Writer
	quiet bool
}

// NewTerminal creates a terminal printer. In quiet mode only errors are
// printed.
func NewTerminal(quiet bool) *Terminal {
	return &Terminal{
		out:   os.Stdout,
		err:   os.Stderr,
		quiet: quiet,
	}
}

// Info prints an informational message
func (t *Terminal) Info(format string, args ...interface{}) {
	if t.quiet {
		return
	}
	fmt.Fprintf(t.out, colorCyan+"→ "+colorReset+format+"\n", args...)
}

// Success prints a success message
func (t *Terminal) Success(format string, args ...interface{}) {
	if t.quiet {
		return
	}
	fmt.Fprintf(t.out, colorGreen+"✓ "+colorReset+format+"\n", args...)
}

// Warning prints a warning message
func (t *Terminal) Warning(format string, args ...interface{}) {
	if t.quiet {
		return
	}
	fmt.Fprintf(t.out, colorYellow+"! "+colorReset+format+"\n", args...)
}

// Error prints an error message to stderr, even in quiet mode
func (t *Terminal) Error(format string, args ...interface{}) {
	fmt.Fprintf(t.err, colorRed+"✗ "+colorReset+format+"\n", args...)
}

// Plain prints an uncolored line
func (t *Terminal) Plain(format string, args ...interface{}) {
	if t.quiet {
		return
	}
	fmt.Fprintf(t.out, format+"\n", args...)
}
