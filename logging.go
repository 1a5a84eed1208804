// logging.go: Pluggable logging for the plugin loader
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"log/slog"
	"sync"
)

// Logger defines the pluggable logging interface used by the Manager and
// the descriptor watcher.
//
// Arguments after the message are key-value pairs, as with log/slog. Any
// logging framework can be plugged in by implementing these five methods;
// *slog.Logger values are adapted automatically by NewLogger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a logger that adds args to every subsequent entry.
	With(args ...any) Logger
}

// NewLogger creates a Logger from supported logger types.
//
// Supported types:
//   - Logger interface: used directly
//   - *slog.Logger: wrapped in a SlogAdapter
//   - nil: NoOpLogger
//
// Any other type panics, since it is a programming error at the call site.
func NewLogger(logger any) Logger {
	switch l := logger.(type) {
	case Logger:
		return l
	case *slog.Logger:
		if l == nil {
			return NewNoOpLogger()
		}
		return NewSlogAdapter(l)
	case nil:
		return NewNoOpLogger()
	default:
		panic("unsupported logger type: expected Logger interface, *slog.Logger or nil")
	}
}

// SlogAdapter exposes a *slog.Logger through the Logger interface.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (s *SlogAdapter) Debug(msg string, args ...any) { s.logger.Debug(msg, args...) }
func (s *SlogAdapter) Info(msg string, args ...any)  { s.logger.Info(msg, args...) }
func (s *SlogAdapter) Warn(msg string, args ...any)  { s.logger.Warn(msg, args...) }
func (s *SlogAdapter) Error(msg string, args ...any) { s.logger.Error(msg, args...) }

// With implements Logger.
func (s *SlogAdapter) With(args ...any) Logger {
	return &SlogAdapter{logger: s.logger.With(args...)}
}

// NoOpLogger discards everything. It is the default when no logger is given.
type NoOpLogger struct{}

// NewNoOpLogger creates a new no-operation logger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) Debug(msg string, args ...any) {}
func (n *NoOpLogger) Info(msg string, args ...any)  {}
func (n *NoOpLogger) Warn(msg string, args ...any)  {}
func (n *NoOpLogger) Error(msg string, args ...any) {}

// With implements Logger. NoOpLogger is stateless so the receiver is returned.
func (n *NoOpLogger) With(args ...any) Logger {
	return n
}

// TestLogger captures log entries so tests can assert on them.
type TestLogger struct {
	fields []any
	sink   *testLogSink
}

type testLogSink struct {
	mu       sync.RWMutex
	messages []TestLogMessage
}

// TestLogMessage is one captured entry.
type TestLogMessage struct {
	Level   string
	Message string
	Args    []any
}

// NewTestLogger creates an empty TestLogger.
func NewTestLogger() *TestLogger {
	return &TestLogger{sink: &testLogSink{messages: make([]TestLogMessage, 0)}}
}

func (t *TestLogger) record(level, msg string, args []any) {
	all := make([]any, 0, len(t.fields)+len(args))
	all = append(all, t.fields...)
	all = append(all, args...)

	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.messages = append(t.sink.messages, TestLogMessage{Level: level, Message: msg, Args: all})
}

func (t *TestLogger) Debug(msg string, args ...any) { t.record("DEBUG", msg, args) }
func (t *TestLogger) Info(msg string, args ...any)  { t.record("INFO", msg, args) }
func (t *TestLogger) Warn(msg string, args ...any)  { t.record("WARN", msg, args) }
func (t *TestLogger) Error(msg string, args ...any) { t.record("ERROR", msg, args) }

// With implements Logger. Derived loggers write into the same sink so a test
// can hold on to the root logger only.
func (t *TestLogger) With(args ...any) Logger {
	fields := make([]any, 0, len(t.fields)+len(args))
	fields = append(fields, t.fields...)
	fields = append(fields, args...)
	return &TestLogger{fields: fields, sink: t.sink}
}

// Messages returns a copy of the captured entries.
func (t *TestLogger) Messages() []TestLogMessage {
	t.sink.mu.RLock()
	defer t.sink.mu.RUnlock()
	out := make([]TestLogMessage, len(t.sink.messages))
	copy(out, t.sink.messages)
	return out
}

// HasMessage reports whether an entry with exactly this level and message was captured.
func (t *TestLogger) HasMessage(level, message string) bool {
	for _, msg := range t.Messages() {
		if msg.Level == level && msg.Message == message {
			return true
		}
	}
	return false
}

// Clear removes all captured entries.
func (t *TestLogger) Clear() {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.messages = t.sink.messages[:0]
}
