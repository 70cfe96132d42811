// Package logging is a minimal wrapper around an io.Writer, in the
// same spirit as golang-dep's log package: no structured fields, no
// levels beyond a verbosity gate, just prefixed line writes threaded
// explicitly through the caller rather than a package-level global.
package logging

import (
	"fmt"
	"io"
)

// Logger writes plain lines to an underlying io.Writer, optionally
// gating a subset of them on a verbosity flag.
type Logger struct {
	io.Writer
	Verbose bool
}

// New returns a Logger that writes to w.
func New(w io.Writer) *Logger {
	return &Logger{Writer: w}
}

// Logln logs a line unconditionally.
func (l *Logger) Logln(args ...interface{}) {
	fmt.Fprintln(l, args...)
}

// Logf logs a formatted string unconditionally.
func (l *Logger) Logf(format string, args ...interface{}) {
	fmt.Fprintf(l, format, args...)
}

// LogPkgfln logs a formatted line prefixed with "orbitpkg: ".
func (l *Logger) LogPkgfln(format string, args ...interface{}) {
	fmt.Fprintf(l, "orbitpkg: "+format+"\n", args...)
}

// Verbosef logs only when Verbose is set, for the chatter an
// operation emits when -v is passed.
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if !l.Verbose {
		return
	}
	fmt.Fprintf(l, format, args...)
}

// Warnf logs a warning line, used for non-fatal conditions such as a
// trust-set mismatch on registry refresh.
func (l *Logger) Warnf(format string, args ...interface{}) {
	fmt.Fprintf(l, "warning: "+format+"\n", args...)
}
