package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents the log level.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Entry is a single structured log line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Component string    `json:"component"`
	Operation string    `json:"operation,omitempty"`
	Path      string    `json:"path,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// sink serializes writes to the underlying log destination. Loggers derived
// via WithOperation share the same sink.
type sink struct {
	mu sync.Mutex
	w  io.WriteCloser
}

func (s *sink) writeLine(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.w, string(data))
}

// Logger writes JSON log lines to a file. It is safe for concurrent use.
type Logger struct {
	out       *sink
	component string
	operation string
}

// NewLogger opens (or creates) the log file at logPath in append mode.
// component names the emitting subsystem, e.g. "catalog" or "control-server".
func NewLogger(logPath, component string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Logger{out: &sink{w: f}, component: component}, nil
}

// NewWriterLogger logs to an arbitrary writer. Used by tests and by the
// control server to tee log lines into the event broadcaster.
func NewWriterLogger(w io.WriteCloser, component string) *Logger {
	return &Logger{out: &sink{w: w}, component: component}
}

// WithOperation returns a logger that stamps every entry with the given
// operation name. The returned logger shares the underlying file.
func (l *Logger) WithOperation(operation string) *Logger {
	return &Logger{out: l.out, component: l.component, operation: operation}
}

// Close closes the underlying log file.
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if l.out.w != nil {
		return l.out.w.Close()
	}
	return nil
}

func (l *Logger) log(level Level, message, path string, err error) {
	entry := Entry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Component: l.component,
		Operation: l.operation,
		Path:      path,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		// Fall back to a minimal line rather than dropping the entry.
		data = []byte(fmt.Sprintf(`{"timestamp":%q,"level":%q,"message":%q,"component":%q}`,
			time.Now().Format(time.RFC3339), level, message, l.component))
	}

	l.out.writeLine(data)
}

// Debug logs a debug message.
func (l *Logger) Debug(message string) {
	l.log(LevelDebug, message, "", nil)
}

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

// Info logs an info message.
func (l *Logger) Info(message string) {
	l.log(LevelInfo, message, "", nil)
}

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// InfoPath logs an info message tied to a file path.
func (l *Logger) InfoPath(message, path string) {
	l.log(LevelInfo, message, path, nil)
}

// Warn logs a warning message.
func (l *Logger) Warn(message string) {
	l.log(LevelWarn, message, "", nil)
}

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Error logs an error message with an optional wrapped error.
func (l *Logger) Error(message string, err error) {
	l.log(LevelError, message, "", err)
}

// ErrorPath logs an error message tied to a file path.
func (l *Logger) ErrorPath(message, path string, err error) {
	l.log(LevelError, message, path, err)
}
