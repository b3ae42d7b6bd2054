package sim

import (
	"fmt"
	"time"
)

// ReenqueueMode decides what happens to a client whose pack still holds files
// after one of them was sent.
type ReenqueueMode string

const (
	// ReenqueueDrop removes the client after its first file.
	ReenqueueDrop ReenqueueMode = "drop"
	// ReenqueueReset puts the remainder back with its arrival reset to the moment of re-entry.
	ReenqueueReset ReenqueueMode = "reset"
	// ReenqueueKeep puts the remainder back with its original arrival time.
	ReenqueueKeep ReenqueueMode = "keep"
)

// validReenqueueModes is the set of recognized modes. Empty maps to drop.
var validReenqueueModes = map[ReenqueueMode]bool{"": true, ReenqueueDrop: true, ReenqueueReset: true, ReenqueueKeep: true}

// IsValidReenqueueMode returns true if name is a recognized re-enqueue mode.
func IsValidReenqueueMode(name string) bool {
	return validReenqueueModes[ReenqueueMode(name)]
}

// FailureAction is the outcome of a FailurePolicy decision.
type FailureAction int

const (
	// Discard makes the failed transfer terminal for the client.
	Discard FailureAction = iota
	// Retry returns the file to the pack and re-enqueues the client.
	Retry
)

func (a FailureAction) String() string {
	switch a {
	case Discard:
		return "discard"
	case Retry:
		return "retry"
	default:
		return fmt.Sprintf("FailureAction(%d)", int(a))
	}
}

// FailurePolicy decides the fate of a client whose transfer failed.
// attempt counts failures of that file, starting at 1.
// Implementations MUST NOT modify the client.
type FailurePolicy interface {
	OnFailure(c *Client, f File, attempt int) FailureAction
}

// DiscardOnFailure treats every failed transfer as terminal for the client.
type DiscardOnFailure struct{}

func (DiscardOnFailure) OnFailure(*Client, File, int) FailureAction { return Discard }

// RetryOnFailure re-enqueues the client until a file has failed MaxAttempts times.
type RetryOnFailure struct {
	MaxAttempts int
}

func (r RetryOnFailure) OnFailure(_ *Client, _ File, attempt int) FailureAction {
	if attempt < r.MaxAttempts {
		return Retry
	}
	return Discard
}

// validFailurePolicies is the set of recognized failure policy names.
var validFailurePolicies = map[string]bool{"": true, "discard": true, "retry": true}

// IsValidFailurePolicy returns true if name is a recognized failure policy.
func IsValidFailurePolicy(name string) bool {
	return validFailurePolicies[name]
}

// NewFailurePolicy creates a FailurePolicy by name.
// Empty string defaults to DiscardOnFailure. maxAttempts only applies to "retry".
// Panics on unrecognized names.
func NewFailurePolicy(name string, maxAttempts int) FailurePolicy {
	if !IsValidFailurePolicy(name) {
		panic(fmt.Sprintf("unknown failure policy %q", name))
	}
	switch name {
	case "", "discard":
		return DiscardOnFailure{}
	case "retry":
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		return RetryOnFailure{MaxAttempts: maxAttempts}
	default:
		panic(fmt.Sprintf("unhandled failure policy %q", name))
	}
}

// RetryBudget bounds the optimistic re-selection loop of one SelectForHost call.
// MaxAttempts below 1 allows a single attempt; a zero Timeout sets no time limit.
type RetryBudget struct {
	MaxAttempts int           // total selection attempts, including the first
	Timeout     time.Duration // wall time allowed across all attempts
}

// DefaultRetryBudget allows a handful of lost races per request.
var DefaultRetryBudget = RetryBudget{MaxAttempts: 8}

// allows reports whether another attempt may start, given attempts already made
// and the time elapsed since the first one.
func (b RetryBudget) allows(made int, elapsed time.Duration) bool {
	max := b.MaxAttempts
	if max < 1 {
		max = 1
	}
	if made >= max {
		return false
	}
	if b.Timeout > 0 && made > 0 && elapsed >= b.Timeout {
		return false
	}
	return true
}
