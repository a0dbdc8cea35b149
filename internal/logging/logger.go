package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Logger writes human-readable status lines to stderr with redaction support
type Logger struct {
	debug   bool
	noColor bool

	warnedMu sync.Mutex
	warned   map[string]bool
}

// New creates a new logger instance
func New(debug, noColor bool) *Logger {
	return &Logger{
		debug:   debug,
		noColor: noColor,
		warned:  make(map[string]bool),
	}
}

func (l *Logger) emit(color, mark, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l.noColor {
		fmt.Fprintf(os.Stderr, "%s %s\n", mark, msg)
		return
	}
	fmt.Fprintf(os.Stderr, "\033[%sm%s\033[0m %s\n", color, mark, msg)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit("32", "✓", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit("33", "⚠", format, args...)
}

// WarnOnce logs a warning at most once per key over the logger's lifetime.
// Conditions that persist across calls, such as running with unlockable
// memory, stay visible without flooding stderr on every operation.
func (l *Logger) WarnOnce(key, format string, args ...interface{}) {
	l.warnedMu.Lock()
	dup := l.warned[key]
	l.warned[key] = true
	l.warnedMu.Unlock()
	if dup {
		return
	}
	l.Warn(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit("31", "✗", format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.emit("36", "[DEBUG]", format, args...)
}

// Secret represents a value that should be redacted in logs
type Secret string

// String implements the Stringer interface, always returning a redacted value
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces sensitive values in a string with [REDACTED]
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if secret != "" && len(secret) > 3 { // Only redact non-trivial secrets
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}
