package logging

// LogEntry represents a structured log record with fields particularly
// relevant to evolution and migration bookkeeping.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Engine-specific fields
	IslandIndex int        // Index of the island emitting the record, -1 when not island-scoped
	EvalInfo    *EvalInfo  // Evaluation counters at emission time

	// General structured data
	Fields map[string]interface{}
}

// EvalInfo tracks evaluation counters for performance monitoring.
type EvalInfo struct {
	Fevals uint64
	Cevals uint64
}
