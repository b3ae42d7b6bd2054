package sim

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_CountsEvents(t *testing.T) {
	m := NewMetrics()
	for _, e := range []Event{
		{Type: EventHostAssigned, HostID: 1, WaitTicks: 2, Score: 1.5},
		{Type: EventHostAssigned, HostID: 2, WaitTicks: 4, Score: 0.5},
		{Type: EventTransferCompleted, HostID: 1},
		{Type: EventTransferFailed, HostID: 2},
		{Type: EventSelectionRetried},
		{Type: EventSelectionExhausted},
		{Type: EventScoreExcluded},
		{Type: EventClientRejected},
		{Type: EventClientRequeued},
		{Type: EventClientEnqueued},
	} {
		m.Observe(e)
	}

	assert.Equal(t, 2, m.Assignments)
	assert.Equal(t, 1, m.FilesSent)
	assert.Equal(t, 1, m.FilesFailed)
	assert.Equal(t, 1, m.Retries)
	assert.Equal(t, 1, m.Exhausted)
	assert.Equal(t, 1, m.ScoreExclusions)
	assert.Equal(t, 1, m.Rejected)
	assert.Equal(t, 1, m.Requeued)
	assert.Equal(t, map[HostID]int{1: 1}, m.PerHost)
}

func TestMetrics_Waits(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, WaitSummary{}, m.Waits())

	for _, w := range []float64{4, 1, 3, 2} {
		m.Observe(Event{Type: EventHostAssigned, WaitTicks: w})
	}
	s := m.Waits()
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 2.0, s.P50)
	assert.Greater(t, s.StdDev, 0.0)
	assert.Equal(t, []float64{4, 1, 3, 2}, m.WaitTicks, "summarizing does not reorder the recorded waits")
}

func TestMetrics_Print(t *testing.T) {
	m := NewMetrics()
	m.Observe(Event{Type: EventHostAssigned, HostID: 3, WaitTicks: 1, Score: 2})
	m.Observe(Event{Type: EventTransferCompleted, HostID: 3})
	m.Observe(Event{Type: EventTransferFailed, HostID: 3, Err: errors.New("boom")})

	var buf bytes.Buffer
	m.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "=== Simulation Metrics ===")
	assert.Contains(t, out, "Files Sent           : 1")
	assert.Contains(t, out, "Files Failed         : 1")
	assert.Contains(t, out, "Host 3   Files Sent  : 1")
	assert.Contains(t, out, "Mean Coefficient     : 2.0000")
}
