package sim

import (
	"time"

	"github.com/sirupsen/logrus"
)

// EventType names a structured event emitted by the scheduler core.
type EventType string

const (
	EventClientEnqueued     EventType = "client_enqueued"
	EventClientRejected     EventType = "client_rejected"
	EventClientRequeued     EventType = "client_requeued"
	EventHostAssigned       EventType = "host_assigned"
	EventSelectionRetried   EventType = "selection_retried"
	EventSelectionExhausted EventType = "selection_exhausted"
	EventScoreExcluded      EventType = "score_excluded"
	EventTransferCompleted  EventType = "transfer_completed"
	EventTransferFailed     EventType = "transfer_failed"
	EventSimulationEnded    EventType = "simulation_ended"
)

// Event is a single observation from the core. Fields that do not apply to
// a given Type are zero.
type Event struct {
	Type     EventType
	Time     time.Time
	ClientID ClientID
	HostID   HostID
	File     File
	Score    float64
	// WaitTicks is the wait (t) of the assigned client at selection time.
	WaitTicks float64
	Attempt   int
	Remaining int // files left in the client's pack after the event
	// Candidates holds the full scoring pass of a host_assigned event, best first.
	Candidates []CandidateScore
	Err        error
	Summary    *Result // set on simulation_ended
}

// Observer receives core events. The core only emits; formatting and routing
// belong to the observer. Implementations must be safe for concurrent use.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers fans an event out to each non-nil observer in order.
type Observers []Observer

func (o Observers) Observe(e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(e)
		}
	}
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

// LogObserver writes events through logrus.
// Lost races are logged at debug, assignments at info, anomalies at warn.
type LogObserver struct {
	Logger logrus.FieldLogger // defaults to the standard logger
}

func (l *LogObserver) Observe(e Event) {
	log := l.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithField("event", string(e.Type))
	switch e.Type {
	case EventClientEnqueued:
		entry.WithFields(logrus.Fields{"client": e.ClientID, "files": e.Remaining}).
			Debugf("<< Enqueued client %d", e.ClientID)
	case EventClientRequeued:
		entry.WithFields(logrus.Fields{"client": e.ClientID, "files": e.Remaining}).
			Debugf("<< Requeued client %d", e.ClientID)
	case EventClientRejected:
		entry.WithField("client", e.ClientID).WithError(e.Err).
			Warnf("Rejected client %d", e.ClientID)
	case EventHostAssigned:
		entry.WithFields(logrus.Fields{
			"host":      e.HostID,
			"client":    e.ClientID,
			"volume":    e.File.Volume,
			"score":     e.Score,
			"wait":      e.WaitTicks,
			"remaining": e.Remaining,
		}).Infof("Host %d <- client %d (%s)", e.HostID, e.ClientID, e.File)
	case EventSelectionRetried:
		entry.WithFields(logrus.Fields{"host": e.HostID, "client": e.ClientID, "attempt": e.Attempt}).
			Debugf("Host %d lost client %d, retrying", e.HostID, e.ClientID)
	case EventSelectionExhausted:
		entry.WithFields(logrus.Fields{"host": e.HostID, "attempt": e.Attempt}).
			Warnf("Host %d exhausted its selection budget", e.HostID)
	case EventScoreExcluded:
		entry.WithField("client", e.ClientID).WithError(e.Err).
			Warnf("Excluded client %d from scoring", e.ClientID)
	case EventTransferCompleted:
		entry.WithFields(logrus.Fields{"host": e.HostID, "client": e.ClientID}).
			Debugf("Host %d finished %s for client %d", e.HostID, e.File, e.ClientID)
	case EventTransferFailed:
		entry.WithFields(logrus.Fields{"host": e.HostID, "client": e.ClientID, "attempt": e.Attempt}).
			WithError(e.Err).Warnf("Host %d failed %s for client %d", e.HostID, e.File, e.ClientID)
	case EventSimulationEnded:
		if e.Summary != nil {
			entry.WithFields(logrus.Fields{
				"run":       e.Summary.RunID,
				"completed": e.Summary.Completed,
				"failed":    e.Summary.Failed,
				"unserved":  e.Summary.Unserved,
			}).Info("Simulation ended")
		} else {
			entry.Info("Simulation ended")
		}
	default:
		entry.Debug("unhandled event")
	}
}
