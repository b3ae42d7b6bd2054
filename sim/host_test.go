package sim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedDispatcher hands out a fixed list of selection outcomes in order and
// then reports ErrNoCandidate forever.
type scriptedDispatcher struct {
	mu        sync.Mutex
	outcomes  []error // nil means "assign a fresh client"
	completed []error
	selects   int
	changed   chan struct{}
	onIdle    func()
}

func newScriptedDispatcher(outcomes ...error) *scriptedDispatcher {
	return &scriptedDispatcher{outcomes: outcomes, changed: make(chan struct{})}
}

func (d *scriptedDispatcher) SelectForHost(_ context.Context, h *Host) (*Assignment, error) {
	d.mu.Lock()
	d.selects++
	n := d.selects
	var outcome error = ErrNoCandidate
	if len(d.outcomes) > 0 {
		outcome = d.outcomes[0]
		d.outcomes = d.outcomes[1:]
	}
	onIdle := d.onIdle
	d.mu.Unlock()

	if outcome != nil {
		if onIdle != nil && errors.Is(outcome, ErrNoCandidate) {
			onIdle()
		}
		return nil, outcome
	}
	c := &Client{ID: ClientID(n), Files: []File{{Volume: float64(n)}}}
	a := &Assignment{Host: h.ID, Client: c, File: c.TakeSmallest()}
	if err := h.assign(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (d *scriptedDispatcher) Complete(_ *Assignment, transferErr error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completed = append(d.completed, transferErr)
	return nil
}

func (d *scriptedDispatcher) Changed() <-chan struct{} {
	return d.changed
}

func (d *scriptedDispatcher) completions() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.completed...)
}

func TestHost_Run_ServesUntilCancelled(t *testing.T) {
	// GIVEN a dispatcher with two assignments, then nothing
	d := newScriptedDispatcher(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	d.onIdle = cancel
	h := NewHost(1)
	var sent []float64
	transfer := TransferFunc(func(_ context.Context, host HostID, _ *Client, f File) error {
		assert.Equal(t, HostID(1), host)
		assert.Equal(t, HostBusy, h.State(), "host is busy while transferring")
		sent = append(sent, f.Volume)
		return nil
	})

	// WHEN the host runs
	err := h.Run(ctx, d, transfer, time.Hour)

	// THEN both files were sent, completed, and the host ends idle
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, sent)
	assert.Equal(t, []error{nil, nil}, d.completions())
	assert.Equal(t, HostIdle, h.State())
	assert.Equal(t, 2, h.Served())
}

func TestHost_Run_ReportsTransferFailure(t *testing.T) {
	d := newScriptedDispatcher(nil)
	ctx, cancel := context.WithCancel(context.Background())
	d.onIdle = cancel
	transfer := TransferFunc(func(context.Context, HostID, *Client, File) error {
		return ErrTransferFault
	})

	require.NoError(t, NewHost(1).Run(ctx, d, transfer, time.Hour))
	got := d.completions()
	require.Len(t, got, 1)
	assert.True(t, errors.Is(got[0], ErrTransferFault))
}

func TestHost_Run_FatalErrorStopsHost(t *testing.T) {
	d := newScriptedDispatcher(ErrInvariantViolation)
	err := NewHost(1).Run(context.Background(), d, TransferFunc(func(context.Context, HostID, *Client, File) error { return nil }), time.Hour)
	assert.True(t, errors.Is(err, ErrInvariantViolation))
}

func TestHost_Run_WakesOnChanged(t *testing.T) {
	// GIVEN an empty dispatcher and a very long poll interval
	d := newScriptedDispatcher(ErrNoCandidate, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan struct{})
	transfer := TransferFunc(func(context.Context, HostID, *Client, File) error {
		close(served)
		return nil
	})
	done := make(chan error, 1)
	go func() { done <- NewHost(1).Run(ctx, d, transfer, time.Hour) }()

	// WHEN the queue signals a change
	time.Sleep(20 * time.Millisecond)
	close(d.changed)

	// THEN the host re-selects without waiting for the poll
	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("host did not wake on the changed signal")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestHost_Run_InFlightTransferSurvivesCancel(t *testing.T) {
	d := newScriptedDispatcher(nil)
	ctx, cancel := context.WithCancel(context.Background())
	transfer := TransferFunc(func(tctx context.Context, _ HostID, _ *Client, _ File) error {
		cancel()
		return tctx.Err()
	})

	require.NoError(t, NewHost(1).Run(ctx, d, transfer, time.Hour))
	assert.Equal(t, []error{nil}, d.completions(), "the transfer context is not cancelled with the host")
}

func TestHost_AssignWhileBusy(t *testing.T) {
	h := NewHost(3)
	c := &Client{ID: 1, Files: []File{{Volume: 1}}}
	require.NoError(t, h.assign(&Assignment{Host: 3, Client: c}))
	assert.True(t, errors.Is(h.assign(&Assignment{Host: 3, Client: c}), ErrInvariantViolation))
	h.release()
	assert.Equal(t, HostIdle, h.State())
	assert.Nil(t, h.Current())
}
