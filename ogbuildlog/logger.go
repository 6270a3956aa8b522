// Package ogbuildlog provides the ambient logging wrapper used throughout
// this module, adapted from the teacher's own log/logger.go: a thin
// io.Writer wrapper with a handful of prefixed convenience methods, rather
// than a third-party structured-logging dependency (none of the retrieved
// example repos import one; see DESIGN.md).
package ogbuildlog

import (
	"fmt"
	"io"
	"sync"
)

// Level orders log verbosity; a Logger only emits records at or below its
// configured Level.
type Level int

const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

// Logger wraps an io.Writer with leveled, phase-tagged convenience
// methods. Writes are serialised: the adaptive loop and a BuildSystem's
// RunWithTee both write concurrently to the same terminal, and the
// teacher's own Logger assumed a single writer, so this adds the mutex the
// original omitted.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
}

// New returns a Logger writing to w at LevelInfo.
func New(w io.Writer) *Logger {
	return &Logger{out: w, level: LevelInfo}
}

// SetLevel adjusts the verbosity threshold.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) logln(level Level, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level > l.level {
		return
	}
	fmt.Fprintln(l.out, args...)
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level > l.level {
		return
	}
	fmt.Fprintf(l.out, format+"\n", args...)
}

// Errorf logs a formatted line at LevelError; Errorf records are always
// emitted regardless of SetLevel.
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(LevelError, format, args...) }

// Infof logs a formatted line at LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) { l.logf(LevelInfo, format, args...) }

// Debugf logs a formatted line at LevelDebug, the --verbose tier.
func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }

// Infoln logs its arguments space-separated at LevelInfo.
func (l *Logger) Infoln(args ...interface{}) { l.logln(LevelInfo, args...) }

// Phasef logs a formatted line prefixed with the current build action, the
// generalisation of the teacher's LogDepfln's "dep: " prefix to an
// arbitrary phase label.
func (l *Logger) Phasef(phase, format string, args ...interface{}) {
	l.logf(LevelInfo, "["+phase+"] "+format, args...)
}
