package sim

import (
	"fmt"
	"time"

	"github.com/auctionio/auctionio/sim/trace"
)

// MinTick is the shortest tick the CLI accepts when running on the wall clock.
const MinTick = 100 * time.Millisecond

// Config groups every knob of a simulation run.
type Config struct {
	Hosts        int           // number of concurrent hosts (must be > 0)
	Tick         time.Duration // unit of wait time t in the score formula
	PollInterval time.Duration // longest an idle host waits before re-requesting work
	Retry        RetryBudget   // bound on optimistic re-selection per request
	Reenqueue    ReenqueueMode // fate of clients with files left after a send

	FailurePolicy      string // "discard" (default) or "retry"
	FailureMaxAttempts int    // attempts per file under "retry"

	Admission AdmissionConfig // gate in front of the queue
	Transfer  TransferConfig  // simulated transfer model
	Horizon   time.Duration   // wall-time cap on a run; 0 = run until drained
	Seed      int64           // master seed for workload and transfer faults

	Trace trace.TraceConfig // decision tracing; zero value disables it
}

// DefaultConfig returns the stock five-host setup
// running at one tick per second.
func DefaultConfig() Config {
	return Config{
		Hosts:              5,
		Tick:               time.Second,
		PollInterval:       time.Second,
		Retry:              DefaultRetryBudget,
		Reenqueue:          ReenqueueDrop,
		FailurePolicy:      "discard",
		FailureMaxAttempts: 3,
		Transfer:           DefaultTransferConfig,
		Seed:               42,
	}
}

// Validate checks that all names and parameter ranges in the config are valid.
func (c Config) Validate() error {
	if c.Hosts < 1 {
		return fmt.Errorf("hosts must be >= 1, got %d", c.Hosts)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %v", c.Tick)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll interval must be non-negative, got %v", c.PollInterval)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry max attempts must be non-negative, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Timeout < 0 {
		return fmt.Errorf("retry timeout must be non-negative, got %v", c.Retry.Timeout)
	}
	if !IsValidReenqueueMode(string(c.Reenqueue)) {
		return fmt.Errorf("unknown reenqueue mode %q", c.Reenqueue)
	}
	if !IsValidFailurePolicy(c.FailurePolicy) {
		return fmt.Errorf("unknown failure policy %q", c.FailurePolicy)
	}
	if c.FailurePolicy == "retry" && c.FailureMaxAttempts < 1 {
		return fmt.Errorf("failure max attempts must be >= 1 for the retry policy, got %d", c.FailureMaxAttempts)
	}
	if c.Horizon < 0 {
		return fmt.Errorf("horizon must be non-negative, got %v", c.Horizon)
	}
	if !trace.IsValidTraceLevel(string(c.Trace.Level)) {
		return fmt.Errorf("unknown trace level %q", c.Trace.Level)
	}
	if c.Trace.CandidateK < 0 {
		return fmt.Errorf("trace candidate count must be non-negative, got %d", c.Trace.CandidateK)
	}
	if err := c.Admission.Validate(); err != nil {
		return err
	}
	return c.Transfer.Validate()
}

// HostIDs returns the ids of the configured hosts, numbered from 1.
func (c Config) HostIDs() []HostID {
	ids := make([]HostID, c.Hosts)
	for i := range ids {
		ids[i] = HostID(i + 1)
	}
	return ids
}
