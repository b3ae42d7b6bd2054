package sim

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PromObserver exports core events as Prometheus metrics.
type PromObserver struct {
	events    *prometheus.CounterVec
	filesSent *prometheus.CounterVec
	wait      prometheus.Histogram
	held      prometheus.Gauge
}

// NewPromObserver creates the collectors and registers them with reg.
func NewPromObserver(reg prometheus.Registerer) *PromObserver {
	p := &PromObserver{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auctionio",
			Name:      "events_total",
			Help:      "Scheduler core events by type.",
		}, []string{"type"}),
		filesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auctionio",
			Name:      "files_sent_total",
			Help:      "Files transferred successfully, by host.",
		}, []string{"host"}),
		wait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "auctionio",
			Name:      "assignment_wait_ticks",
			Help:      "Ticks a client waited in the queue before winning a host.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		held: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auctionio",
			Name:      "busy_hosts",
			Help:      "Hosts currently serving a client.",
		}),
	}
	reg.MustRegister(p.events, p.filesSent, p.wait, p.held)
	return p
}

func (p *PromObserver) Observe(e Event) {
	p.events.WithLabelValues(string(e.Type)).Inc()
	switch e.Type {
	case EventHostAssigned:
		p.wait.Observe(e.WaitTicks)
		p.held.Inc()
	case EventTransferCompleted:
		p.filesSent.WithLabelValues(strconv.Itoa(int(e.HostID))).Inc()
		p.held.Dec()
	case EventTransferFailed:
		p.held.Dec()
	}
}
