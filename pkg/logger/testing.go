package logger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
)

// TestLogger forwards log lines to the test output and keeps them for assertions
type TestLogger struct {
	T *testing.T

	mu      *sync.Mutex
	entries *[]string
	fields  string
}

// NewTestLogger creates a logger bound to t; t may be nil
func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{T: t, mu: &sync.Mutex{}, entries: &[]string{}}
}

// NewMockLogger creates a logger for tests, with or without a testing.T
func NewMockLogger(t ...*testing.T) Logger {
	if len(t) > 0 {
		return NewTestLogger(t[0])
	}
	return NewTestLogger(nil)
}

func (l *TestLogger) log(level, msg string) {
	line := fmt.Sprintf("[%s] %s%s", level, msg, l.fields)
	l.mu.Lock()
	*l.entries = append(*l.entries, line)
	l.mu.Unlock()
	if l.T != nil {
		l.T.Log(line)
	}
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg) }
func (l *TestLogger) Fatal(msg string) { l.log("FATAL", msg) }

// WithField returns a child sharing the recorded entries
func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a child sharing the recorded entries
func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(l.fields)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return &TestLogger{T: l.T, mu: l.mu, entries: l.entries, fields: b.String()}
}

// Entries returns every line logged through this logger or its children
func (l *TestLogger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(*l.entries))
	copy(out, *l.entries)
	return out
}

// Contains reports whether any recorded line contains substr
func (l *TestLogger) Contains(substr string) bool {
	for _, e := range l.Entries() {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
