package sim

import (
	"fmt"
	"math"
)

// Score computes the priority coefficient of a queued client.
// Higher scores win the next free host.
//
// Formula: t/c + log_{1/2}(v/c), evaluated as t/c - log2(v/c)
//
//   - t: ticks the client has waited since it (re-)entered the queue
//   - v: volume of the client's smallest remaining file
//   - c: queue cardinality at scoring time, shared by every candidate of one pass
//
// c normalizes both terms but does not cancel out: it divides t linearly and
// shifts the log term by log2(c).
func Score(t, v float64, c int) (float64, error) {
	if c <= 0 {
		return 0, fmt.Errorf("%w: queue cardinality %d", ErrInvalidInput, c)
	}
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return 0, fmt.Errorf("%w: wait time %v", ErrInvalidInput, t)
	}
	if !(v > 0) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: volume %v", ErrInvalidInput, v)
	}
	n := float64(c)
	return t/n - math.Log2(v/n), nil
}

// CandidateScore is one client's standing in a scoring pass.
type CandidateScore struct {
	ClientID    ClientID
	ArrivalTime int64   // unix nanoseconds, for ordering
	WaitTicks   float64 // t
	Volume      float64 // v
	Score       float64
}

// scoreTolerance is the relative gap under which two scores count as tied.
// Scores that are equal in exact arithmetic can land a few ulps apart once
// t/c and log2(v/c) are rounded.
const scoreTolerance = 1e-9

// scoresTie reports whether a and b are equal within scoreTolerance.
func scoresTie(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= scoreTolerance*scale
}

// better reports whether a outranks b: higher score, then smaller v,
// then earlier arrival, then lower id.
func better(a, b CandidateScore) bool {
	if !scoresTie(a.Score, b.Score) {
		return a.Score > b.Score
	}
	if a.Volume != b.Volume {
		return a.Volume < b.Volume
	}
	if a.ArrivalTime != b.ArrivalTime {
		return a.ArrivalTime < b.ArrivalTime
	}
	return a.ClientID < b.ClientID
}
