// Package logger is lectern's process-wide levelled logger.
//
// Warnings and errors always reach stderr. Info, debug and section lines
// follow the ingestion and question-answering pipeline and are printed only
// with --verbose.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

var prefixes = [...]string{
	levelDebug: "[DEBUG] ",
	levelInfo:  "[INFO] ",
	levelWarn:  "[WARN] ",
	levelError: "[ERROR] ",
}

// sink holds the logger state. Writes hold the lock so lines from
// concurrent goroutines never interleave.
type sink struct {
	mu      sync.Mutex
	w       io.Writer
	minimum level
}

var std = &sink{w: os.Stderr, minimum: levelWarn}

func (s *sink) enabled(l level) bool {
	return l >= s.minimum
}

func (s *sink) printf(l level, format string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled(l) {
		return
	}
	fmt.Fprintf(s.w, prefixes[l]+format+"\n", args...)
}

// SetVerbose lowers the threshold to debug, or restores warnings-only.
func SetVerbose(v bool) {
	std.mu.Lock()
	defer std.mu.Unlock()
	if v {
		std.minimum = levelDebug
	} else {
		std.minimum = levelWarn
	}
}

// IsVerbose reports whether debug output is enabled.
func IsVerbose() bool {
	std.mu.Lock()
	defer std.mu.Unlock()
	return std.enabled(levelDebug)
}

// SetOutput redirects every log line. Tests swap in a buffer.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.w = w
}

// Section prints a pipeline stage header in verbose mode.
func Section(name string) {
	std.mu.Lock()
	defer std.mu.Unlock()
	if std.enabled(levelInfo) {
		fmt.Fprintf(std.w, "\n=== %s ===\n", name)
	}
}

// Debug logs pipeline detail in verbose mode.
func Debug(format string, args ...any) { std.printf(levelDebug, format, args) }

// Info logs progress in verbose mode.
func Info(format string, args ...any) { std.printf(levelInfo, format, args) }

// Warn logs a recoverable problem, such as a skipped lesson.
func Warn(format string, args ...any) { std.printf(levelWarn, format, args) }

// Error logs a failure.
func Error(format string, args ...any) { std.printf(levelError, format, args) }
