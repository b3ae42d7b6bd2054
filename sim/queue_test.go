package sim

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustClient builds a valid client or fails the test.
func mustClient(t *testing.T, id ClientID, arrival time.Time, volumes ...float64) *Client {
	t.Helper()
	c, err := NewClient(id, arrival, volumes...)
	require.NoError(t, err)
	return c
}

func TestClientQueue_EnqueueAndRemove(t *testing.T) {
	q := NewClientQueue()
	t0 := time.Unix(1000, 0)
	require.NoError(t, q.Enqueue(mustClient(t, 1, t0, 5)))
	require.NoError(t, q.Enqueue(mustClient(t, 2, t0, 1)))
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, "[1 2]", q.String())

	c, err := q.RemoveByID(1)
	require.NoError(t, err)
	assert.Equal(t, ClientID(1), c.ID)
	assert.False(t, q.Contains(1))
	assert.True(t, q.Contains(2))

	// A second removal of the same id is the lost-race signal.
	_, err = q.RemoveByID(1)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestClientQueue_DuplicateID_LeavesQueueUnchanged(t *testing.T) {
	q := NewClientQueue()
	t0 := time.Unix(1000, 0)
	require.NoError(t, q.Enqueue(mustClient(t, 1, t0, 5)))

	err := q.Enqueue(mustClient(t, 1, t0, 1))
	assert.True(t, errors.Is(err, ErrDuplicateID), "got %v", err)
	views := q.Snapshot()
	require.Len(t, views, 1)
	assert.Equal(t, 5.0, views[0].Volume)
}

func TestClientQueue_InvalidClient_Rejected(t *testing.T) {
	q := NewClientQueue()
	err := q.Enqueue(&Client{ID: 4})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	err = q.Enqueue(nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.True(t, q.IsEmpty())
}

func TestClientQueue_SnapshotIsIsolated(t *testing.T) {
	// GIVEN a snapshot of two clients
	q := NewClientQueue()
	t0 := time.Unix(1000, 0)
	c1 := mustClient(t, 1, t0, 3, 8)
	require.NoError(t, q.Enqueue(c1))
	require.NoError(t, q.Enqueue(mustClient(t, 2, t0, 4)))
	views := q.Snapshot()

	// WHEN the queue and the client change afterwards
	_, err := q.RemoveByID(2)
	require.NoError(t, err)
	c1.TakeSmallest()

	// THEN the snapshot still shows the earlier state
	require.Len(t, views, 2)
	assert.Equal(t, ClientID(2), views[1].ID)
	assert.Equal(t, 3.0, views[0].Volume)
	assert.Equal(t, 2, views[0].Remaining)
}

func TestClientQueue_ChangedClosesOnEnqueue(t *testing.T) {
	q := NewClientQueue()
	ch := q.Changed()
	select {
	case <-ch:
		t.Fatal("changed channel closed before any enqueue")
	default:
	}
	require.NoError(t, q.Enqueue(mustClient(t, 1, time.Unix(0, 0), 1)))
	select {
	case <-ch:
	default:
		t.Fatal("changed channel not closed by enqueue")
	}
	assert.NotEqual(t, ch, q.Changed(), "a fresh channel replaces the closed one")
}

func TestClientQueue_ConcurrentRemove_ExactlyOneWinner(t *testing.T) {
	q := NewClientQueue()
	require.NoError(t, q.Enqueue(mustClient(t, 1, time.Unix(0, 0), 1)))

	const racers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := q.RemoveByID(1); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.True(t, q.IsEmpty())
}

func TestClientQueue_ConcurrentEnqueueSnapshot(t *testing.T) {
	q := NewClientQueue()
	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(2)
		go func(id ClientID) {
			defer wg.Done()
			assert.NoError(t, q.Enqueue(&Client{ID: id, Files: []File{{Volume: float64(id)}}}))
		}(ClientID(i))
		go func() {
			defer wg.Done()
			for _, v := range q.Snapshot() {
				assert.Greater(t, v.Volume, 0.0)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, q.Len())
}
