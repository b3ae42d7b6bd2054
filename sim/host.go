package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Dispatcher is a host's view of the coordinator: where it asks for work,
// where it reports finished work, and how it learns that new work arrived.
type Dispatcher interface {
	SelectForHost(ctx context.Context, host *Host) (*Assignment, error)
	Complete(a *Assignment, transferErr error) error
	Changed() <-chan struct{}
}

// Host is a simulated worker that serves one client's file at a time.
//
// State machine:
//
//	Idle --(selection succeeds)--> Busy --(transfer ends)--> Idle
//	Idle --(no candidate)--> Idle
type Host struct {
	ID HostID

	mu      sync.Mutex
	state   HostState
	current *Assignment
	served  int // transfers attempted
}

// NewHost creates an idle host.
func NewHost(id HostID) *Host {
	return &Host{ID: id, state: HostIdle}
}

// State returns the host's current state.
func (h *Host) State() HostState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Current returns the assignment being served, or nil when idle.
func (h *Host) Current() *Assignment {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Served returns the number of transfers the host has started.
func (h *Host) Served() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.served
}

func (h *Host) assign(a *Assignment) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == HostBusy {
		return fmt.Errorf("%w: host %d is already serving client %d", ErrInvariantViolation, h.ID, h.current.Client.ID)
	}
	h.state = HostBusy
	h.current = a
	h.served++
	return nil
}

func (h *Host) release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = HostIdle
	h.current = nil
}

// Run loops request -> serve -> repeat until ctx is cancelled or a fatal error
// occurs. When no client is available the host waits for the next enqueue or
// poll, whichever comes first. Transfers in flight when ctx is cancelled run
// to completion; no selection is started afterwards.
func (h *Host) Run(ctx context.Context, d Dispatcher, transfer Transfer, poll time.Duration) error {
	if poll <= 0 {
		poll = time.Second
	}
	timer := time.NewTimer(poll)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		changed := d.Changed()
		a, err := d.SelectForHost(ctx, h)
		switch {
		case err == nil:
			terr := transfer.Send(context.WithoutCancel(ctx), h.ID, a.Client, a.File)
			h.release()
			if err := d.Complete(a, terr); err != nil {
				return err
			}
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case errors.Is(err, ErrNoCandidate), errors.Is(err, ErrSelectionExhausted):
			// idle; wait below
		default:
			return err
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(poll)
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		case <-timer.C:
		}
	}
}
