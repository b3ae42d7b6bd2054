package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
)

// === SimulationKey ===

// SimulationKey identifies a reproducible stream of random decisions.
// Two runs with the same key draw the same workload and the same transfer faults;
// the order in which concurrent hosts win races is not part of that guarantee.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemWorkload is the RNG subsystem for client arrivals and file packs.
	// Uses the master seed directly so --seed alone reproduces a workload.
	SubsystemWorkload = "workload"
)

// SubsystemHost returns the subsystem name for host N's transfer faults.
func SubsystemHost(id HostID) string {
	return fmt.Sprintf("host_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG hands out one deterministically seeded *rand.Rand per subsystem.
//
// Derivation formula:
//   - SubsystemWorkload: masterSeed
//   - any other subsystem: masterSeed XOR fnv1a64(subsystemName)
//
// ForSubsystem may be called from several goroutines; each returned *rand.Rand
// is NOT safe for concurrent use and must stay with a single goroutine.
type PartitionedRNG struct {
	key SimulationKey

	mu         sync.Mutex
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the RNG for the named subsystem, creating it on first use.
// The same name always yields the same instance. Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	seed := int64(p.key)
	if name != SubsystemWorkload {
		seed ^= fnv1a64(name)
	}
	rng := rand.New(rand.NewSource(seed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
