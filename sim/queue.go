// Implements the ClientQueue, which holds all clients waiting for a free host.
// Clients are enqueued on arrival and removed when a host's selection commits.

package sim

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ClientView is an immutable copy of a queued client's scoring inputs,
// taken inside a single Snapshot.
type ClientView struct {
	ID          ClientID
	ArrivalTime time.Time
	Volume      float64 // smallest remaining file
	Remaining   int
}

// ClientQueue is the registry of clients waiting to be scheduled.
// Insertion order is kept for display only; scoring decides who leaves.
// Every method is safe for concurrent use and individually atomic.
type ClientQueue struct {
	mu      sync.RWMutex
	order   []ClientID           // insertion order
	clients map[ClientID]*Client // queued clients by id
	changed chan struct{}        // closed and replaced on every Enqueue
}

// NewClientQueue creates an empty queue.
func NewClientQueue() *ClientQueue {
	return &ClientQueue{
		clients: make(map[ClientID]*Client),
		changed: make(chan struct{}),
	}
}

// Enqueue adds a client to the queue.
// Fails with ErrInvalidInput on a malformed pack and ErrDuplicateID if the id is already queued;
// in both cases the queue is left untouched.
func (q *ClientQueue) Enqueue(c *Client) error {
	if err := c.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.clients[c.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, c.ID)
	}
	q.clients[c.ID] = c
	q.order = append(q.order, c.ID)
	close(q.changed)
	q.changed = make(chan struct{})
	return nil
}

// Changed returns a channel that is closed the next time a client is enqueued.
// Idle hosts wait on it instead of spinning.
func (q *ClientQueue) Changed() <-chan struct{} {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.changed
}

// Snapshot returns the scoring inputs of every queued client as of one instant,
// in insertion order. The views are copies; later queue mutations do not affect them.
func (q *ClientQueue) Snapshot() []ClientView {
	q.mu.RLock()
	defer q.mu.RUnlock()
	views := make([]ClientView, 0, len(q.order))
	for _, id := range q.order {
		c := q.clients[id]
		views = append(views, ClientView{
			ID:          c.ID,
			ArrivalTime: c.ArrivalTime,
			Volume:      c.SmallestVolume(),
			Remaining:   c.Remaining(),
		})
	}
	return views
}

// RemoveByID removes and returns the client with the given id.
// Fails with ErrNotFound if it is not queued, which during selection means a
// concurrent selection already took it.
func (q *ClientQueue) RemoveByID(id ClientID) (*Client, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	c, ok := q.clients[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	delete(q.clients, id)
	for i, qid := range q.order {
		if qid == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return c, nil
}

// Len returns the number of queued clients (c in the score formula).
func (q *ClientQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.clients)
}

// IsEmpty reports whether no client is queued.
func (q *ClientQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Contains reports whether the id is currently queued.
func (q *ClientQueue) Contains(id ClientID) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	_, ok := q.clients[id]
	return ok
}

func (q *ClientQueue) String() string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var sb strings.Builder
	sb.WriteString("[")
	for i, id := range q.order {
		sb.WriteString(fmt.Sprint(id))
		if i < len(q.order)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
