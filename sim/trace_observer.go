package sim

import (
	"sync"

	"github.com/auctionio/auctionio/sim/trace"
)

// TraceRecorder is an Observer that fills a trace.SimulationTrace with
// enqueue and assignment decisions.
type TraceRecorder struct {
	mu    sync.Mutex
	trace *trace.SimulationTrace
}

// NewTraceRecorder returns a recorder for the given run, or nil when the
// level disables tracing. A nil *TraceRecorder ignores every event.
func NewTraceRecorder(runID string, cfg trace.TraceConfig) *TraceRecorder {
	if cfg.Level == "" || cfg.Level == trace.TraceLevelNone {
		return nil
	}
	return &TraceRecorder{trace: trace.NewSimulationTrace(runID, cfg)}
}

// Trace returns the recorded trace. The caller must not read it while the
// simulation is still running.
func (r *TraceRecorder) Trace() *trace.SimulationTrace {
	if r == nil {
		return nil
	}
	return r.trace
}

func (r *TraceRecorder) Observe(e Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch e.Type {
	case EventClientEnqueued, EventClientRequeued:
		r.trace.RecordEnqueue(trace.EnqueueRecord{
			ClientID: int64(e.ClientID),
			ClockNs:  e.Time.UnixNano(),
			Accepted: true,
			Requeue:  e.Type == EventClientRequeued,
			Files:    e.Remaining,
		})
	case EventClientRejected:
		reason := ""
		if e.Err != nil {
			reason = e.Err.Error()
		}
		r.trace.RecordEnqueue(trace.EnqueueRecord{
			ClientID: int64(e.ClientID),
			ClockNs:  e.Time.UnixNano(),
			Reason:   reason,
		})
	case EventHostAssigned:
		r.trace.RecordAssignment(r.assignmentRecord(e))
	}
}

func (r *TraceRecorder) assignmentRecord(e Event) trace.AssignmentRecord {
	keep := len(e.Candidates)
	if limit := 1 + r.trace.Config.CandidateK; keep > limit {
		keep = limit
	}
	candidates := make([]trace.CandidateScore, keep)
	for i := 0; i < keep; i++ {
		c := e.Candidates[i]
		candidates[i] = trace.CandidateScore{
			ClientID:  int64(c.ClientID),
			WaitTicks: c.WaitTicks,
			Volume:    c.Volume,
			Score:     c.Score,
		}
	}
	margin := 0.0
	if len(e.Candidates) > 1 {
		margin = e.Candidates[0].Score - e.Candidates[1].Score
	}
	return trace.AssignmentRecord{
		HostID:     int(e.HostID),
		ClientID:   int64(e.ClientID),
		ClockNs:    e.Time.UnixNano(),
		Volume:     e.File.Volume,
		Score:      e.Score,
		WaitTicks:  e.WaitTicks,
		Attempts:   e.Attempt,
		QueueSize:  len(e.Candidates),
		Candidates: candidates,
		Margin:     margin,
	}
}
