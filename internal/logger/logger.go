// Package logger handles operational logging. Messages go to stderr so
// stdout stays clean for data output, and every event is also appended
// to a per-namespace run log file with a timestamp and severity.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"
)

// timestampLayout is the format of the leading timestamp in run log lines
const timestampLayout = "2006-01-02 15:04:05"

// Logger writes operational messages to stderr and, when opened with a
// run log path, appends timestamped lines to that file.
type Logger struct {
	writer io.Writer
	file   io.Writer
	closer io.Closer
	now    func() time.Time
	quiet  bool
	debug  bool
}

// New creates a logger that writes to stderr only
func New(quiet, debug bool) *Logger {
	return &Logger{
		writer: os.Stderr,
		now:    time.Now,
		quiet:  quiet,
		debug:  debug,
	}
}

// NewWithWriter creates a logger targeting w instead of stderr
func NewWithWriter(w io.Writer, quiet, debug bool) *Logger {
	l := New(quiet, debug)
	l.writer = w
	return l
}

// Open creates a logger that additionally appends to the run log file at
// path. The file is never truncated; lines accumulate across runs.
func Open(path string, quiet, debug bool) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file '%s': %w", path, err)
	}
	l := New(quiet, debug)
	l.file = f
	l.closer = f
	return l, nil
}

// Close closes the run log file, if any
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// appendLine writes one timestamped line to the run log file
func (l *Logger) appendLine(level, format string, args ...interface{}) {
	if l.file == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(l.file, "%s - %s - %s\n", l.now().Format(timestampLayout), level, msg)
}

// Infof logs an informational message
func (l *Logger) Infof(format string, args ...interface{}) {
	if !l.quiet {
		_, _ = fmt.Fprintf(l.writer, format+"\n", args...)
	}
	l.appendLine("INFO", format, args...)
}

// Successf logs a success message
func (l *Logger) Successf(format string, args ...interface{}) {
	if !l.quiet {
		_, _ = fmt.Fprintf(l.writer, "✓ "+format+"\n", args...)
	}
	l.appendLine("INFO", format, args...)
}

// Warningf logs a warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	if !l.quiet {
		_, _ = fmt.Fprintf(l.writer, "Warning: "+format+"\n", args...)
	}
	l.appendLine("WARNING", format, args...)
}

// Errorf logs an error message (always shown, even in quiet mode)
func (l *Logger) Errorf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(l.writer, "Error: "+format+"\n", args...)
	l.appendLine("ERROR", format, args...)
}

// Debugf logs a debug message (only shown when debug mode is enabled)
func (l *Logger) Debugf(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	_, _ = fmt.Fprintf(l.writer, "DEBUG: "+format+"\n", args...)
	l.appendLine("DEBUG", format, args...)
}

// Println prints a blank line to stderr (for spacing); never logged to file
func (l *Logger) Println() {
	if !l.quiet {
		_, _ = fmt.Fprintln(l.writer)
	}
}
