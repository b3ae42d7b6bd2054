package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Assignment is a committed selection: the client left the queue and is held
// exclusively by Host until Release.
type Assignment struct {
	Host      HostID
	Client    *Client
	File      File    // smallest file, already taken out of the pack
	Remaining int     // files left in the pack after File was taken
	Score     float64 // winning coefficient
	WaitTicks float64 // t of the winner when it was scored
	Attempts  int     // selection passes needed, 1 when no race was lost
	At        time.Time
	// Candidates is the scoring pass that produced the winner, best first.
	Candidates []CandidateScore
}

// Scheduler owns the client queue and hands its best client to whichever
// host asks. Scoring runs outside any exclusive lock; a lost race on
// RemoveByID restarts the pass from a fresh snapshot within the RetryBudget.
type Scheduler struct {
	queue    *ClientQueue
	clock    Clock
	tick     time.Duration
	budget   RetryBudget
	observer Observer

	mu   sync.Mutex
	held map[ClientID]HostID // clients currently owned by a host
}

// NewScheduler creates a Scheduler over queue. tick is the unit of t in the
// score formula and must be positive. A nil observer discards events.
func NewScheduler(queue *ClientQueue, clock Clock, tick time.Duration, budget RetryBudget, observer Observer) *Scheduler {
	if queue == nil {
		panic("NewScheduler: queue must not be nil")
	}
	if clock == nil {
		panic("NewScheduler: clock must not be nil")
	}
	if tick <= 0 {
		panic(fmt.Sprintf("NewScheduler: tick must be positive, got %v", tick))
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Scheduler{
		queue:    queue,
		clock:    clock,
		tick:     tick,
		budget:   budget,
		observer: observer,
		held:     make(map[ClientID]HostID),
	}
}

// Queue returns the queue the scheduler selects from.
func (s *Scheduler) Queue() *ClientQueue {
	return s.queue
}

// SelectForHost picks the best queued client for host, removes it from the
// queue, takes its smallest file and marks host busy with the result.
//
// Errors:
//   - ErrNoCandidate: the queue is empty (or every queued client was excluded from scoring)
//   - ErrSelectionExhausted: every attempt of the retry budget lost its race
//   - ErrClockRegression, ErrInvariantViolation: fatal
//   - ctx.Err(): the caller is shutting down
func (s *Scheduler) SelectForHost(ctx context.Context, host *Host) (*Assignment, error) {
	start := s.clock.Now()
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.queue.IsEmpty() {
			return nil, ErrNoCandidate
		}
		views := s.queue.Snapshot()
		if len(views) == 0 {
			return nil, ErrNoCandidate
		}
		now := s.clock.Now()
		ranked, err := s.Rank(views, now)
		if err != nil {
			return nil, err
		}
		if len(ranked) == 0 {
			return nil, ErrNoCandidate
		}
		winner := ranked[0]

		client, err := s.queue.RemoveByID(winner.ClientID)
		if errors.Is(err, ErrNotFound) {
			s.observer.Observe(Event{Type: EventSelectionRetried, Time: s.clock.Now(), HostID: host.ID, ClientID: winner.ClientID, Attempt: attempt})
			if !s.budget.allows(attempt, s.clock.Now().Sub(start)) {
				s.observer.Observe(Event{Type: EventSelectionExhausted, Time: s.clock.Now(), HostID: host.ID, Attempt: attempt})
				return nil, fmt.Errorf("%w: host %d after %d attempts", ErrSelectionExhausted, host.ID, attempt)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		return s.commit(host, client, winner, ranked, attempt, now)
	}
}

// commit records the hand-off of client to host.
func (s *Scheduler) commit(host *Host, client *Client, winner CandidateScore, ranked []CandidateScore, attempts int, now time.Time) (*Assignment, error) {
	s.mu.Lock()
	if owner, ok := s.held[client.ID]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: client %d already held by host %d, requested by host %d",
			ErrInvariantViolation, client.ID, owner, host.ID)
	}
	s.held[client.ID] = host.ID
	s.mu.Unlock()

	file := client.TakeSmallest()
	a := &Assignment{
		Host:       host.ID,
		Client:     client,
		File:       file,
		Remaining:  client.Remaining(),
		Score:      winner.Score,
		WaitTicks:  winner.WaitTicks,
		Attempts:   attempts,
		At:         now,
		Candidates: ranked,
	}
	if err := host.assign(a); err != nil {
		_ = s.Release(a)
		return nil, err
	}
	s.observer.Observe(Event{
		Type:       EventHostAssigned,
		Time:       now,
		HostID:     host.ID,
		ClientID:   client.ID,
		File:       file,
		Score:      winner.Score,
		WaitTicks:  winner.WaitTicks,
		Attempt:    attempts,
		Remaining:  a.Remaining,
		Candidates: ranked,
	})
	return a, nil
}

// Release ends the host's ownership of the assignment's client. It must be
// called exactly once per Assignment, before the client is re-enqueued.
func (s *Scheduler) Release(a *Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.held[a.Client.ID]
	if !ok || owner != a.Host {
		return fmt.Errorf("%w: host %d released client %d it does not hold", ErrInvariantViolation, a.Host, a.Client.ID)
	}
	delete(s.held, a.Client.ID)
	return nil
}

// Holder returns the host currently holding id, if any.
func (s *Scheduler) Holder(id ClientID) (HostID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.held[id]
	return h, ok
}

// Held returns the number of clients currently owned by hosts.
func (s *Scheduler) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}

// Rank scores a snapshot at now and returns it best first.
// Clients whose score cannot be computed are reported and left out.
func (s *Scheduler) Rank(views []ClientView, now time.Time) ([]CandidateScore, error) {
	c := len(views)
	ranked := make([]CandidateScore, 0, c)
	for _, v := range views {
		wait := now.Sub(v.ArrivalTime)
		if wait < 0 {
			return nil, fmt.Errorf("%w: now %s precedes arrival %s of client %d",
				ErrClockRegression, now.Format(time.RFC3339Nano), v.ArrivalTime.Format(time.RFC3339Nano), v.ID)
		}
		t := float64(wait) / float64(s.tick)
		score, err := Score(t, v.Volume, c)
		if err != nil {
			s.observer.Observe(Event{Type: EventScoreExcluded, Time: now, ClientID: v.ID, Err: err})
			continue
		}
		ranked = append(ranked, CandidateScore{
			ClientID:    v.ID,
			ArrivalTime: v.ArrivalTime.UnixNano(),
			WaitTicks:   t,
			Volume:      v.Volume,
			Score:       score,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		return better(ranked[i], ranked[j])
	})
	return ranked, nil
}
