package sim

import "errors"

var (
	// ErrInvalidInput reports a malformed client or a score computed outside its domain
	// (non-positive volume, empty pack, empty queue cardinality).
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateID is returned by ClientQueue.Enqueue when the id is already queued.
	ErrDuplicateID = errors.New("duplicate client id")

	// ErrNotFound is returned by ClientQueue.RemoveByID when the id is not queued.
	// During selection it means another host won the race for that client.
	ErrNotFound = errors.New("client not found")

	// ErrNoCandidate is returned by Scheduler.SelectForHost when the queue is empty.
	ErrNoCandidate = errors.New("no candidate")

	// ErrSelectionExhausted is returned when the retry budget ran out before a
	// selection could be committed.
	ErrSelectionExhausted = errors.New("selection retry budget exhausted")

	// ErrInvariantViolation is fatal: a client was about to be held by two hosts.
	ErrInvariantViolation = errors.New("scheduler invariant violated")

	// ErrClockRegression is fatal: the clock reported a time before a queued arrival.
	ErrClockRegression = errors.New("clock regression")
)

// IsFatal reports whether err must halt the simulation.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvariantViolation) || errors.Is(err, ErrClockRegression)
}
