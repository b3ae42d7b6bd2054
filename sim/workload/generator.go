package workload

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/auctionio/auctionio/sim"
)

// GenerateArrivals turns a WorkloadSpec into the arrival stream of a run.
// Deterministic given the same spec. Offsets are converted from ticks with tick.
// Fixed clients keep their ids; generated clients are numbered after the
// largest fixed id, starting at 1. Volumes of fixed clients are passed through
// unchecked so that the queue boundary, not the generator, rejects bad packs.
func GenerateArrivals(spec *WorkloadSpec, tick time.Duration) ([]sim.Arrival, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload spec: %w", err)
	}
	if tick <= 0 {
		return nil, fmt.Errorf("tick must be positive, got %v", tick)
	}

	arrivals := make([]sim.Arrival, 0, spec.Clients+len(spec.Fixed))
	nextID := int64(1)
	for _, f := range spec.Fixed {
		arrivals = append(arrivals, sim.Arrival{
			Offset:  f.At,
			ID:      sim.ClientID(f.ID),
			Volumes: append([]float64(nil), f.Files...),
		})
		if f.ID >= nextID {
			nextID = f.ID + 1
		}
	}

	if spec.Clients > 0 {
		rng := sim.NewPartitionedRNG(sim.NewSimulationKey(spec.Seed)).ForSubsystem(sim.SubsystemWorkload)
		sampler := NewArrivalSampler(spec.Arrival, spec.Rate)
		ticks := 0.0
		for i := 0; i < spec.Clients; i++ {
			if i > 0 {
				ticks += sampler.SampleIAT(rng)
			}
			arrivals = append(arrivals, sim.Arrival{
				Offset:  ticksToDuration(ticks, tick),
				ID:      sim.ClientID(nextID),
				Volumes: GenerateFilePack(rng, spec.Files),
			})
			nextID++
		}
	}

	sort.SliceStable(arrivals, func(i, j int) bool {
		return arrivals[i].Offset < arrivals[j].Offset
	})
	return arrivals, nil
}

// GenerateFilePack draws one client's pack, sorted ascending by volume.
func GenerateFilePack(rng *rand.Rand, spec FilePackSpec) []float64 {
	n := spec.MinCount + rng.Intn(spec.MaxCount-spec.MinCount+1)
	files := make([]float64, n)
	for i := range files {
		files[i] = float64(spec.MinVolume + rng.Intn(spec.MaxVolume-spec.MinVolume+1))
	}
	sort.Float64s(files)
	return files
}

func ticksToDuration(ticks float64, tick time.Duration) time.Duration {
	d := ticks * float64(tick)
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}
