package trace

import (
	"encoding/json"
	"fmt"
	"io"
)

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every enqueue and assignment decision.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level      TraceLevel
	CandidateK int // number of runner-up candidates kept per assignment
}

// SimulationTrace collects decision records during a run.
// Not safe for concurrent use; the recording observer serializes access.
type SimulationTrace struct {
	RunID       string
	Config      TraceConfig
	Enqueues    []EnqueueRecord
	Assignments []AssignmentRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(runID string, config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		RunID:       runID,
		Config:      config,
		Enqueues:    make([]EnqueueRecord, 0),
		Assignments: make([]AssignmentRecord, 0),
	}
}

// RecordEnqueue appends an enqueue decision record.
func (st *SimulationTrace) RecordEnqueue(record EnqueueRecord) {
	st.Enqueues = append(st.Enqueues, record)
}

// RecordAssignment appends an assignment decision record.
func (st *SimulationTrace) RecordAssignment(record AssignmentRecord) {
	st.Assignments = append(st.Assignments, record)
}

// WriteJSON writes the trace as indented JSON.
func (st *SimulationTrace) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	return nil
}
