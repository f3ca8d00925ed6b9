package logger

import (
	"sync"
)

// TestLogger records entries in memory for assertions in tests.
type TestLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

type LogEntry struct {
	Level   string
	Message string
	Fields  []Field
}

// NewTestLogger creates an empty test logger.
func NewTestLogger() *TestLogger {
	return &TestLogger{entries: make([]LogEntry, 0)}
}

func (l *TestLogger) Debug(msg string, fields ...Field) { l.log("DEBUG", msg, fields...) }
func (l *TestLogger) Info(msg string, fields ...Field)  { l.log("INFO", msg, fields...) }
func (l *TestLogger) Warn(msg string, fields ...Field)  { l.log("WARN", msg, fields...) }
func (l *TestLogger) Error(msg string, fields ...Field) { l.log("ERROR", msg, fields...) }
func (l *TestLogger) Fatal(msg string, fields ...Field) { l.log("FATAL", msg, fields...) }

func (l *TestLogger) With(fields ...Field) Logger { return l }
func (l *TestLogger) Named(name string) Logger    { return l }
func (l *TestLogger) Sync() error                 { return nil }

func (l *TestLogger) log(level, msg string, fields ...Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

// Entries returns a copy of all recorded entries.
func (l *TestLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
