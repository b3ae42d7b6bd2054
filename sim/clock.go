package sim

import (
	"sync"
	"time"
)

// Clock supplies the current time for wait-time computation.
// Implementations must be monotonic and safe for concurrent use.
type Clock interface {
	Now() time.Time
}

// Waiter is implemented by clocks that can schedule a wake-up on their own
// timeline. Clocks without it are waited on in wall time.
type Waiter interface {
	After(d time.Duration) <-chan time.Time
}

// after returns a channel that fires once d has elapsed on clock.
func after(clock Clock, d time.Duration) <-chan time.Time {
	if w, ok := clock.(Waiter); ok {
		return w.After(d)
	}
	return time.After(d)
}

// WallClock reads the system clock. time.Now carries a monotonic reading,
// so Sub between two values is immune to wall-clock adjustments.
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now() }

func (WallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// ManualClock is a Clock that only moves when told to. Used by tests to pin
// wait times exactly.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []manualWaiter
}

type manualWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewManualClock creates a ManualClock reading start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d. Negative durations panic: a manual
// clock must stay monotonic like any other Clock.
func (m *ManualClock) Advance(d time.Duration) {
	if d < 0 {
		panic("ManualClock.Advance: negative duration")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	m.fireLocked()
}

// Set moves the clock to t, which may be in the past. Only tests that
// exercise clock-regression handling should call it.
func (m *ManualClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
	m.fireLocked()
}

// After returns a channel that receives the clock's time once Advance or Set
// has moved it at least d past the current reading.
func (m *ManualClock) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- m.now
		return ch
	}
	m.waiters = append(m.waiters, manualWaiter{deadline: m.now.Add(d), ch: ch})
	return ch
}

// Waiting reports how many After channels have not fired yet.
func (m *ManualClock) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

func (m *ManualClock) fireLocked() {
	pending := m.waiters[:0]
	for _, w := range m.waiters {
		if m.now.Before(w.deadline) {
			pending = append(pending, w)
			continue
		}
		w.ch <- m.now
	}
	m.waiters = pending
}
