// Package trace provides decision-trace recording for scheduler analysis.
// This package has no dependencies on sim/. It stores pure data types.
package trace

// EnqueueRecord captures a client entering (or being refused by) the queue.
type EnqueueRecord struct {
	ClientID int64
	ClockNs  int64 // unix nanoseconds
	Accepted bool
	Requeue  bool // true when the client came back with files left
	Files    int
	Reason   string
}

// CandidateScore captures one client's standing in the pass that produced an assignment.
type CandidateScore struct {
	ClientID  int64
	WaitTicks float64
	Volume    float64
	Score     float64
}

// AssignmentRecord captures a single host hand-off.
type AssignmentRecord struct {
	HostID     int
	ClientID   int64
	ClockNs    int64
	Volume     float64 // file sent
	Score      float64
	WaitTicks  float64
	Attempts   int              // selection passes, > 1 after lost races
	QueueSize  int              // c of the winning pass
	Candidates []CandidateScore // winner first, then up to CandidateK runners-up
	Margin     float64          // winner score - best runner-up score; 0 without runners-up
}
