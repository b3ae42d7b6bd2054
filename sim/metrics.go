// Tracks simulation-wide statistics such as:
// wait ticks at assignment, winning coefficients, files sent per host, lost races.

package sim

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Metrics aggregates core events for final reporting.
// It is an Observer and safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	Assignments     int
	FilesSent       int
	FilesFailed     int
	Retries         int // lost races that triggered a re-selection
	Exhausted       int // selections that ran out of budget
	ScoreExclusions int
	Rejected        int
	Requeued        int

	WaitTicks []float64 // t of each winner at assignment
	Scores    []float64 // coefficient of each winner
	PerHost   map[HostID]int
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{PerHost: make(map[HostID]int)}
}

func (m *Metrics) Observe(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch e.Type {
	case EventHostAssigned:
		m.Assignments++
		m.WaitTicks = append(m.WaitTicks, e.WaitTicks)
		m.Scores = append(m.Scores, e.Score)
	case EventTransferCompleted:
		m.FilesSent++
		m.PerHost[e.HostID]++
	case EventTransferFailed:
		m.FilesFailed++
	case EventSelectionRetried:
		m.Retries++
	case EventSelectionExhausted:
		m.Exhausted++
	case EventScoreExcluded:
		m.ScoreExclusions++
	case EventClientRejected:
		m.Rejected++
	case EventClientRequeued:
		m.Requeued++
	}
}

// WaitSummary describes the distribution of wait ticks at assignment.
type WaitSummary struct {
	Count  int
	Mean   float64
	StdDev float64
	P50    float64
	P90    float64
	P99    float64
	Max    float64
}

// Waits summarizes wait ticks. Zero-valued when nothing was assigned.
func (m *Metrics) Waits() WaitSummary {
	m.mu.Lock()
	waits := append([]float64(nil), m.WaitTicks...)
	m.mu.Unlock()
	return summarize(waits)
}

func summarize(xs []float64) WaitSummary {
	if len(xs) == 0 {
		return WaitSummary{}
	}
	sort.Float64s(xs)
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		std = 0
	}
	return WaitSummary{
		Count:  len(xs),
		Mean:   mean,
		StdDev: std,
		P50:    stat.Quantile(0.50, stat.Empirical, xs, nil),
		P90:    stat.Quantile(0.90, stat.Empirical, xs, nil),
		P99:    stat.Quantile(0.99, stat.Empirical, xs, nil),
		Max:    xs[len(xs)-1],
	}
}

// Print writes aggregated metrics at the end of the simulation.
func (m *Metrics) Print(w io.Writer) {
	waits := m.Waits()
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Assignments          : %d\n", m.Assignments)
	fmt.Fprintf(w, "Files Sent           : %d\n", m.FilesSent)
	fmt.Fprintf(w, "Files Failed         : %d\n", m.FilesFailed)
	fmt.Fprintf(w, "Lost Races           : %d\n", m.Retries)
	fmt.Fprintf(w, "Exhausted Selections : %d\n", m.Exhausted)
	fmt.Fprintf(w, "Rejected Clients     : %d\n", m.Rejected)
	fmt.Fprintf(w, "Requeued Clients     : %d\n", m.Requeued)
	if waits.Count > 0 {
		fmt.Fprintf(w, "Wait (ticks)         : mean %.2f, sd %.2f, p50 %.2f, p90 %.2f, p99 %.2f, max %.2f\n",
			waits.Mean, waits.StdDev, waits.P50, waits.P90, waits.P99, waits.Max)
		fmt.Fprintf(w, "Mean Coefficient     : %.4f\n", stat.Mean(m.Scores, nil))
	}
	hosts := make([]HostID, 0, len(m.PerHost))
	for id := range m.PerHost {
		hosts = append(hosts, id)
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i] < hosts[j] })
	for _, id := range hosts {
		fmt.Fprintf(w, "Host %-3d Files Sent  : %d\n", id, m.PerHost[id])
	}
}
