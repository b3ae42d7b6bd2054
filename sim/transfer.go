package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Transfer carries out the opaque timed operation of sending one file to a
// host. Send blocks until the transfer ends and reports failure through its
// error; the core never looks at how long it took.
type Transfer interface {
	Send(ctx context.Context, host HostID, c *Client, f File) error
}

// TransferFunc adapts a function to the Transfer interface.
type TransferFunc func(ctx context.Context, host HostID, c *Client, f File) error

func (fn TransferFunc) Send(ctx context.Context, host HostID, c *Client, f File) error {
	return fn(ctx, host, c, f)
}

// ErrTransferFault is the error reported by an injected transfer fault.
var ErrTransferFault = errors.New("transfer fault")

// TransferConfig describes how long a simulated transfer takes.
//
// Duration = Tick * (Steps*StepFraction + PerVolume*volume)
//
// The defaults mirror a progress bar of 100 steps that advance every 0.05 ticks.
type TransferConfig struct {
	Steps        int     `yaml:"steps"`
	StepFraction float64 `yaml:"step_fraction"`
	PerVolume    float64 `yaml:"per_volume"`   // extra ticks per unit of file volume
	FailureRate  float64 `yaml:"failure_rate"` // probability in [0, 1) that a transfer fails
}

// DefaultTransferConfig is the transfer model used when none is configured.
var DefaultTransferConfig = TransferConfig{Steps: 100, StepFraction: 0.05}

// Validate checks the transfer model parameters.
func (c TransferConfig) Validate() error {
	if c.Steps < 0 {
		return fmt.Errorf("transfer steps must be non-negative, got %d", c.Steps)
	}
	if c.StepFraction < 0 {
		return fmt.Errorf("transfer step_fraction must be non-negative, got %f", c.StepFraction)
	}
	if c.PerVolume < 0 {
		return fmt.Errorf("transfer per_volume must be non-negative, got %f", c.PerVolume)
	}
	if c.FailureRate < 0 || c.FailureRate >= 1 {
		return fmt.Errorf("transfer failure_rate must be in [0, 1), got %f", c.FailureRate)
	}
	return nil
}

// SimulatedTransfer sleeps for the configured duration and optionally fails.
// Each host draws faults from its own RNG stream, so hosts never share a *rand.Rand.
type SimulatedTransfer struct {
	cfg  TransferConfig
	tick time.Duration
	rngs map[HostID]*rand.Rand // read-only after construction
}

// NewSimulatedTransfer builds a transfer model for the given hosts.
func NewSimulatedTransfer(cfg TransferConfig, tick time.Duration, rng *PartitionedRNG, hosts []HostID) *SimulatedTransfer {
	st := &SimulatedTransfer{cfg: cfg, tick: tick, rngs: make(map[HostID]*rand.Rand, len(hosts))}
	for _, id := range hosts {
		st.rngs[id] = rng.ForSubsystem(SubsystemHost(id))
	}
	return st
}

// Duration returns how long sending f takes.
func (st *SimulatedTransfer) Duration(f File) time.Duration {
	ticks := float64(st.cfg.Steps)*st.cfg.StepFraction + st.cfg.PerVolume*f.Volume
	return time.Duration(ticks * float64(st.tick))
}

func (st *SimulatedTransfer) Send(ctx context.Context, host HostID, c *Client, f File) error {
	// Draw before sleeping so the fault sequence per host does not depend on timing.
	fail := false
	if st.cfg.FailureRate > 0 {
		rng, ok := st.rngs[host]
		if !ok {
			return fmt.Errorf("simulated transfer: unknown host %d", host)
		}
		fail = rng.Float64() < st.cfg.FailureRate
	}
	if d := st.Duration(f); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if fail {
		return fmt.Errorf("%w: host %d, client %d, %s", ErrTransferFault, host, c.ID, f)
	}
	return nil
}
