package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrAdmissionDenied is returned by Coordinator.Inject when the admission
// policy turns a valid client away.
var ErrAdmissionDenied = errors.New("admission denied")

// AdmissionPolicy decides whether an arriving client may join the queue.
// queued is the queue length at the time of the decision.
// Implementations must be safe for concurrent use.
type AdmissionPolicy interface {
	Admit(c *Client, queued int, now time.Time) (admitted bool, reason string)
}

// AlwaysAdmit admits all clients unconditionally.
type AlwaysAdmit struct{}

func (AlwaysAdmit) Admit(*Client, int, time.Time) (bool, string) {
	return true, ""
}

// TokenBucket implements rate-limiting admission control.
// Each client costs one token per file in its pack; tokens refill continuously
// at refillRate per tick up to capacity.
type TokenBucket struct {
	capacity   float64
	refillRate float64 // tokens per tick
	tick       time.Duration

	mu            sync.Mutex
	currentTokens float64
	lastRefill    time.Time
}

// NewTokenBucket creates a full TokenBucket.
func NewTokenBucket(capacity, refillRate float64, tick time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:      capacity,
		refillRate:    refillRate,
		tick:          tick,
		currentTokens: capacity,
	}
}

// Admit checks whether the client's pack fits in the tokens available at now.
func (tb *TokenBucket) Admit(c *Client, _ int, now time.Time) (bool, string) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.lastRefill.IsZero() {
		tb.lastRefill = now
	}
	if elapsed := now.Sub(tb.lastRefill); elapsed > 0 {
		refill := float64(elapsed) / float64(tb.tick) * tb.refillRate
		tb.currentTokens = min(tb.capacity, tb.currentTokens+refill)
		tb.lastRefill = now
	}
	cost := float64(c.Remaining())
	if tb.currentTokens >= cost {
		tb.currentTokens -= cost
		return true, ""
	}
	return false, fmt.Sprintf("insufficient tokens (%.1f available, %d needed)", tb.currentTokens, c.Remaining())
}

// QueueCap rejects clients while the queue already holds Max clients.
type QueueCap struct {
	Max int
}

func (q QueueCap) Admit(_ *Client, queued int, _ time.Time) (bool, string) {
	if queued >= q.Max {
		return false, fmt.Sprintf("queue full (%d clients)", queued)
	}
	return true, ""
}

// AdmissionConfig selects and parameterizes the admission policy.
type AdmissionConfig struct {
	Policy     string  `yaml:"policy"`      // "always-admit" (default), "token-bucket", "queue-cap"
	Capacity   float64 `yaml:"capacity"`    // token-bucket capacity or queue-cap limit
	RefillRate float64 `yaml:"refill_rate"` // token-bucket tokens per tick
}

// validAdmissionPolicies is the set of recognized admission policy names.
var validAdmissionPolicies = map[string]bool{"": true, "always-admit": true, "token-bucket": true, "queue-cap": true}

// IsValidAdmissionPolicy returns true if name is a recognized admission policy.
func IsValidAdmissionPolicy(name string) bool {
	return validAdmissionPolicies[name]
}

// Validate checks the admission parameters for the selected policy.
func (c AdmissionConfig) Validate() error {
	if !IsValidAdmissionPolicy(c.Policy) {
		return fmt.Errorf("unknown admission policy %q", c.Policy)
	}
	switch c.Policy {
	case "token-bucket":
		if c.Capacity <= 0 {
			return fmt.Errorf("token-bucket capacity must be positive, got %v", c.Capacity)
		}
		if c.RefillRate < 0 {
			return fmt.Errorf("token-bucket refill_rate must be non-negative, got %v", c.RefillRate)
		}
	case "queue-cap":
		if c.Capacity < 1 {
			return fmt.Errorf("queue-cap capacity must be >= 1, got %v", c.Capacity)
		}
	}
	return nil
}

// NewAdmissionPolicy creates an admission policy from cfg.
// An empty policy name defaults to AlwaysAdmit. tick converts the token-bucket
// refill rate to wall time. Panics on unrecognized names.
func NewAdmissionPolicy(cfg AdmissionConfig, tick time.Duration) AdmissionPolicy {
	if !IsValidAdmissionPolicy(cfg.Policy) {
		panic(fmt.Sprintf("unknown admission policy %q", cfg.Policy))
	}
	switch cfg.Policy {
	case "", "always-admit":
		return AlwaysAdmit{}
	case "token-bucket":
		return NewTokenBucket(cfg.Capacity, cfg.RefillRate, tick)
	case "queue-cap":
		return QueueCap{Max: int(cfg.Capacity)}
	default:
		panic(fmt.Sprintf("unhandled admission policy %q", cfg.Policy))
	}
}
