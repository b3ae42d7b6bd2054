package sim

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromObserver_ExportsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPromObserver(reg)

	p.Observe(Event{Type: EventHostAssigned, HostID: 1, WaitTicks: 3})
	p.Observe(Event{Type: EventHostAssigned, HostID: 2, WaitTicks: 1})
	p.Observe(Event{Type: EventTransferCompleted, HostID: 1})
	p.Observe(Event{Type: EventSelectionRetried, HostID: 2})

	assert.Equal(t, 2.0, testutil.ToFloat64(p.events.WithLabelValues(string(EventHostAssigned))))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.events.WithLabelValues(string(EventSelectionRetried))))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.filesSent.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.held), "one host still busy")
	assert.Equal(t, 1, testutil.CollectAndCount(p.wait))

	count, err := testutil.GatherAndCount(reg, "auctionio_events_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPromObserver_DoubleRegistration_Panics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPromObserver(reg)
	assert.Panics(t, func() { NewPromObserver(reg) })
}
