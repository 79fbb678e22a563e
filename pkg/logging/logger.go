package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

type contextKey int

const islandIndexKey contextKey = iota

// WithIslandIndex tags ctx with the index of the island doing the work, so
// that every record emitted under it carries the island identity.
func WithIslandIndex(ctx context.Context, idx int) context.Context {
	return context.WithValue(ctx, islandIndexKey, idx)
}

// GetIslandIndex extracts the island index from ctx, if any.
func GetIslandIndex(ctx context.Context) (int, bool) {
	idx, ok := ctx.Value(islandIndexKey).(int)
	return idx, ok
}

// Logger provides the core logging functionality.
type Logger struct {
	mu         sync.Mutex
	severity   Severity
	outputs    []Output
	sampleRate uint32                 // For high-frequency event sampling
	fields     map[string]interface{} // Default fields for all logs
}

// Output interface allows for different logging destinations.
type Output interface {
	Write(LogEntry) error
	Sync() error
	Close() error
}

// Config allows flexible logger configuration.
type Config struct {
	Severity      Severity
	Outputs       []Output
	SampleRate    uint32
	DefaultFields map[string]interface{}
}

// NewLogger creates a new logger with the given configuration.
func NewLogger(cfg Config) *Logger {
	return &Logger{
		severity:   cfg.Severity,
		outputs:    cfg.Outputs,
		sampleRate: cfg.SampleRate,
		fields:     cfg.DefaultFields,
	}
}

// logf is the core logging function that handles all severity levels.
func (l *Logger) logf(ctx context.Context, s Severity, format string, args ...interface{}) {
	// Early severity check for performance
	if s < l.severity {
		return
	}

	// Get caller information
	pc, file, line, _ := runtime.Caller(2)
	fn := runtime.FuncForPC(pc).Name()

	// Create base entry
	entry := LogEntry{
		Time:        time.Now().UnixNano(),
		Severity:    s,
		Message:     fmt.Sprintf(format, args...),
		File:        filepath.Base(file),
		Line:        line,
		Function:    filepath.Base(fn),
		IslandIndex: -1,
		Fields:      make(map[string]interface{}),
	}

	// Add context values if present
	if ctx != nil {
		if idx, ok := GetIslandIndex(ctx); ok {
			entry.IslandIndex = idx
		}
	}

	// Add default fields
	for k, v := range l.fields {
		if _, exists := entry.Fields[k]; !exists {
			entry.Fields[k] = v
		}
	}

	// Write to all outputs
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, out := range l.outputs {
		if err := out.Write(entry); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write log entry: %v\n", err)
		}
	}
}

// Evaluation logs the outcome of a fitness evaluation at DEBUG level together
// with the current evaluation counters.
func (l *Logger) Evaluation(ctx context.Context, x, f interface{}, info *EvalInfo) {
	if l.severity > DEBUG {
		return
	}

	l.Debug(ctx, "Evaluation: x: %v, f: %v, counters: %v", x, f, info)
}

// Regular severity-based logging methods.
func (l *Logger) Debug(ctx context.Context, format string, args ...interface{}) {
	l.logf(ctx, DEBUG, format, args...)
}

func (l *Logger) Info(ctx context.Context, format string, args ...interface{}) {
	l.logf(ctx, INFO, format, args...)
}

func (l *Logger) Warn(ctx context.Context, format string, args ...interface{}) {
	l.logf(ctx, WARN, format, args...)
}

func (l *Logger) Error(ctx context.Context, format string, args ...interface{}) {
	l.logf(ctx, ERROR, format, args...)
}

// GetLogger returns the global logger instance.
func GetLogger() *Logger {
	// First try reading without a write lock
	mu.RLock()
	if l := defaultLogger; l != nil {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	// If no logger exists, create one with write lock
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger == nil {
		// Create default logger with reasonable defaults
		defaultLogger = NewLogger(Config{
			Severity: INFO,
			Outputs: []Output{
				NewConsoleOutput(false),
			},
		})
	}

	return defaultLogger
}

// SetLogger allows setting a custom configured logger as the global instance.
func SetLogger(l *Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// Configure builds a logger from plain settings (level name, optional log
// file, console colors) and installs it as the global instance.
func Configure(level, file string, color bool) (*Logger, error) {
	outputs := []Output{NewConsoleOutput(false, WithColor(color))}
	if file != "" {
		fo, err := NewFileOutput(file)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, fo)
	}
	l := NewLogger(Config{
		Severity: ParseSeverity(level),
		Outputs:  outputs,
	})
	SetLogger(l)
	return l, nil
}
