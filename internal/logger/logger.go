// Package logger provides a small leveled logging interface for trikdash
// components. Output goes through the standard library log package, so it
// follows whatever writer main installs (console, file, or both).
package logger

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// EnvDebug enables debug output when set to any non-empty value.
const EnvDebug = "TRIK_DEBUG"

// Logger defines the interface for logging operations.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type stdLogger struct {
	prefix string
	debug  bool
}

// New returns a logger that writes through log.Printf with the given prefix
// (e.g. "[refresh]"). Debug lines are emitted when debug is true or TRIK_DEBUG is set.
func New(prefix string, debug bool) Logger {
	return &stdLogger{prefix: prefix, debug: debug}
}

func (l *stdLogger) Debug(format string, args ...any) {
	if l.debug || os.Getenv(EnvDebug) != "" {
		log.Printf(l.prefix+" DEBUG: "+format, args...)
	}
}

func (l *stdLogger) Info(format string, args ...any) {
	log.Printf(l.prefix+" "+format, args...)
}

func (l *stdLogger) Warn(format string, args ...any) {
	log.Printf(l.prefix+" WARN: "+format, args...)
}

func (l *stdLogger) Error(format string, args ...any) {
	log.Printf(l.prefix+" ERROR: "+format, args...)
}

type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for test assertions. It is safe for
// concurrent use since refresh goroutines log from many panels at once.
type BufferLogger struct {
	mu       sync.Mutex
	messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{}
}

func (l *BufferLogger) add(level, format string, args ...any) {
	l.mu.Lock()
	l.messages = append(l.messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
	l.mu.Unlock()
}

func (l *BufferLogger) Debug(format string, args ...any) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...any)  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...any)  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...any) { l.add("error", format, args...) }

// Messages returns a copy of everything logged so far.
func (l *BufferLogger) Messages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Messages() {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Count returns the number of messages logged at the given level.
func (l *BufferLogger) Count(level string) int {
	n := 0
	for _, m := range l.Messages() {
		if m.Level == level {
			n++
		}
	}
	return n
}
