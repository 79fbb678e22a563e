package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type MockOutput struct {
	entries []LogEntry
	mu      sync.Mutex
	closed  bool
}

func NewMockOutput() *MockOutput {
	return &MockOutput{
		entries: make([]LogEntry, 0),
	}
}

func (m *MockOutput) Write(entry LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("output is closed")
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockOutput) Sync() error {
	return nil
}

func (m *MockOutput) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockOutput) GetEntries() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries
}

func TestNewLogger(t *testing.T) {
	mockOutput := NewMockOutput()
	defaultFields := map[string]interface{}{
		"service": "test",
		"version": "1.0",
	}

	cfg := Config{
		Severity:      INFO,
		Outputs:       []Output{mockOutput},
		SampleRate:    100,
		DefaultFields: defaultFields,
	}

	logger := NewLogger(cfg)

	assert.Equal(t, INFO, logger.severity)
	assert.Equal(t, uint32(100), logger.sampleRate)
	assert.Equal(t, defaultFields, logger.fields)
}

func TestGlobalLogger(t *testing.T) {
	// Test default logger creation
	logger1 := GetLogger()
	assert.NotNil(t, logger1)

	// Test setting custom logger
	mockOutput := NewMockOutput()
	customLogger := NewLogger(Config{
		Severity: DEBUG,
		Outputs:  []Output{mockOutput},
	})
	SetLogger(customLogger)

	logger2 := GetLogger()
	assert.Equal(t, customLogger, logger2)
}

func TestConcurrentLogging(t *testing.T) {
	mockOutput := NewMockOutput()
	logger := NewLogger(Config{
		Severity: DEBUG,
		Outputs:  []Output{mockOutput},
	})

	var wg sync.WaitGroup
	numGoroutines := 100
	messagesPerGoroutine := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(routineID int) {
			defer wg.Done()
			for j := 0; j < messagesPerGoroutine; j++ {
				logger.Info(context.Background(), "message from routine %d: %d", routineID, j)
			}
		}(i)
	}

	wg.Wait()

	entries := mockOutput.GetEntries()
	assert.Equal(t, numGoroutines*messagesPerGoroutine, len(entries))
}

func TestIslandIndexContext(t *testing.T) {
	ctx := context.Background()

	ctxWithIsland := WithIslandIndex(ctx, 3)
	idx, ok := GetIslandIndex(ctxWithIsland)
	assert.True(t, ok)
	assert.Equal(t, 3, idx)

	// Untagged context has no island index
	_, ok = GetIslandIndex(ctx)
	assert.False(t, ok)

	// Entries emitted under a tagged context carry the index
	mockOutput := NewMockOutput()
	logger := NewLogger(Config{
		Severity: DEBUG,
		Outputs:  []Output{mockOutput},
	})
	logger.Info(ctxWithIsland, "evolving")
	logger.Info(ctx, "not island scoped")

	entries := mockOutput.GetEntries()
	assert.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].IslandIndex)
	assert.Equal(t, -1, entries[1].IslandIndex)
}

func TestEvaluationLogging(t *testing.T) {
	mockOutput := NewMockOutput()
	logger := NewLogger(Config{
		Severity: DEBUG,
		Outputs:  []Output{mockOutput},
	})

	info := &EvalInfo{Fevals: 10, Cevals: 4}

	ctx := context.Background()
	logger.Evaluation(ctx, []float64{0.5, 1}, []float64{1.25}, info)

	entries := mockOutput.GetEntries()
	assert.NotEmpty(t, entries)
	lastEntry := entries[len(entries)-1]
	assert.Contains(t, lastEntry.Message, "0.5")
	assert.Contains(t, lastEntry.Message, "1.25")
}

func TestFieldTruncation(t *testing.T) {
	longText := strings.Repeat("a", 200)
	fields := map[string]interface{}{
		"x": longText,
		"f": longText,
	}

	formatted := formatFields(fields)
	assert.True(t, len(formatted) < len(longText)*2)
	assert.Contains(t, formatted, "...")
}

func TestConfigure(t *testing.T) {
	prev := GetLogger()
	defer SetLogger(prev)

	path := filepath.Join(t.TempDir(), "engine.log")
	logger, err := Configure("DEBUG", path, false)
	assert.NoError(t, err)
	assert.Equal(t, DEBUG, logger.severity)
	assert.Len(t, logger.outputs, 2)
	assert.Equal(t, logger, GetLogger(), "Configure installs the global logger")

	logger.Info(context.Background(), "configured")
	for _, out := range logger.outputs {
		assert.NoError(t, out.Sync())
	}
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "configured")
}

func TestConfigureRejectsUnwritableFile(t *testing.T) {
	_, err := Configure("INFO", filepath.Join(t.TempDir(), "missing", "engine.log"), false)
	assert.Error(t, err)
}
