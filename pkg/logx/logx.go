// Package logx provides structured logging functionality with component-scoped loggers.
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Logger is a leveled logger scoped to a single component (engine, session, knowledge, ...).
type Logger struct {
	component string
	logger    *log.Logger
}

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Global debug flag, toggled once at startup.
//
//nolint:gochecknoglobals // Intentional process-wide debug toggle
var (
	debugEnabled bool
	debugMutex   sync.RWMutex
)

// SetDebug enables or disables debug-level output for all loggers.
func SetDebug(enabled bool) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugEnabled = enabled
}

// DebugEnabled reports whether debug logging is active.
// Debug output is on when SetDebug(true) was called or INTERVIEWD_DEBUG is set.
func DebugEnabled() bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()
	if debugEnabled {
		return true
	}
	v := os.Getenv("INTERVIEWD_DEBUG")
	return v == "1" || strings.EqualFold(v, "true")
}

// NewLogger creates a logger for the given component.
func NewLogger(component string) *Logger {
	return &Logger{
		component: component,
		logger:    log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
	}
}

func (l *Logger) logf(level Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] %-5s %s", l.component, level, msg)
}

// Debug logs a debug-level message. No-op unless debug logging is enabled.
func (l *Logger) Debug(format string, args ...any) {
	if !DebugEnabled() {
		return
	}
	l.logf(LevelDebug, format, args...)
}

// Info logs an info-level message.
func (l *Logger) Info(format string, args ...any) {
	l.logf(LevelInfo, format, args...)
}

// Warn logs a warning-level message.
func (l *Logger) Warn(format string, args ...any) {
	l.logf(LevelWarn, format, args...)
}

// Error logs an error-level message.
func (l *Logger) Error(format string, args ...any) {
	l.logf(LevelError, format, args...)
}

// Errorf logs an error-level message and returns it as an error value.
// Useful for log-and-return paths.
func (l *Logger) Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	l.logf(LevelError, "%v", err)
	return err
}
