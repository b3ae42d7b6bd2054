// Package sim provides the concurrent scheduling core of auctionio.
//
// # Reading Guide
//
// Start with these files to understand the scheduler:
//   - client.go: Client and its file pack (smallest file first)
//   - score.go: the coefficient t/c - log2(v/c) and the tie-break order
//   - queue.go: ClientQueue, the only shared mutable state
//   - scheduler.go: SelectForHost, optimistic selection with bounded retry
//   - host.go: the host loop (Idle -> Busy -> Idle)
//   - coordinator.go: wiring, arrivals, re-enqueue and failure handling, drain detection
//
// # Concurrency Model
//
// Each host is a goroutine. Hosts never lock the whole selection: a host
// snapshots the queue, scores the snapshot without holding any lock, and
// commits by removing its winner. Losing that removal to another host restarts
// the pass from a fresh snapshot, within a RetryBudget. The scheduler records
// which host holds which client, and a second hand-off of a held client is
// reported as ErrInvariantViolation.
//
// # Key Interfaces
//
//   - Clock: source of "now" for wait times (WallClock, ManualClock)
//   - Transfer: the timed send of one file (SimulatedTransfer, TransferFunc)
//   - FailurePolicy: what happens to a client after a failed send
//   - Observer: receives structured events (Metrics, LogObserver, PromObserver, TraceRecorder)
//
// Sub-packages:
//   - sim/workload/: arrival processes and file-pack generation
//   - sim/trace/: decision trace records and summaries
package sim
