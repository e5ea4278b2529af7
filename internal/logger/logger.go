// Package logger provides a simple logging interface for ipmicollect components.
// It allows packages to log debug, info, warn, and error messages without
// being coupled to a specific logging implementation.
//
// Everything goes to stderr (and optionally a rotated file): stdout is
// reserved for the PUTVAL stream consumed by collectd.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// DebugEnv enables debug output regardless of the configured level.
const DebugEnv = "IPMICOLLECT_DEBUG"

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// debugEnabled is flipped by Setup when log.level is "debug".
var debugEnabled atomic.Bool

// minLevel is the lowest rank printed by Info and Warn; see levelRank.
var minLevel atomic.Int32

func levelRank(level string) int32 {
	switch level {
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 1
	}
}

// Options configures the process-wide log output.
type Options struct {
	Level      string // debug, info, warn, error
	File       string // optional log file, rotated by size
	MaxSizeMB  int
	MaxBackups int
}

// Setup points the standard logger at stderr plus an optional rotated file.
// The returned closer releases the file; it is a no-op when no file is set.
func Setup(opts Options) io.Closer {
	debugEnabled.Store(opts.Level == "debug")
	minLevel.Store(levelRank(opts.Level))

	if opts.File == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}

	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSize,
		MaxBackups: opts.MaxBackups,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// envLogger implements Logger on top of the standard log package.
// Debug messages are only printed when IPMICOLLECT_DEBUG is set or the
// level is debug.
type envLogger struct {
	prefix string
}

// NewEnvLogger creates a logger that respects the IPMICOLLECT_DEBUG environment variable.
// The prefix is prepended to all log messages (e.g., "[pool]" or "[scheduler]").
func NewEnvLogger(prefix string) Logger {
	return &envLogger{prefix: prefix}
}

func (l *envLogger) Debug(format string, args ...interface{}) {
	if debugEnabled.Load() || os.Getenv(DebugEnv) != "" {
		log.Printf(l.prefix+" DEBUG: "+format, args...)
	}
}

func (l *envLogger) Info(format string, args ...interface{}) {
	if minLevel.Load() > 1 {
		return
	}
	log.Printf(l.prefix+" "+format, args...)
}

func (l *envLogger) Warn(format string, args ...interface{}) {
	if minLevel.Load() > 2 {
		return
	}
	log.Printf(l.prefix+" WARN: "+format, args...)
}

func (l *envLogger) Error(format string, args ...interface{}) {
	log.Printf(l.prefix+" ERROR: "+format, args...)
}

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing.
// Safe for use from several workers at once.
type BufferLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		Messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args...) }

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the captured messages.
func (l *BufferLogger) Snapshot() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogMessage(nil), l.Messages...)
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = l.Messages[:0]
}

var defaultLogger = NewEnvLogger("")

// Default returns the default logger for the package.
func Default() Logger {
	return defaultLogger
}

// SetDefault sets the default logger for the package.
func SetDefault(l Logger) {
	defaultLogger = l
}
