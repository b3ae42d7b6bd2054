package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkloadSpec describes the stream of clients arriving during a run.
// Loaded from YAML via LoadWorkloadSpec(path).
//
// Generated clients follow the arrival process at Rate clients per tick, each
// carrying a pack of Files.MinCount..Files.MaxCount files with integer volumes
// in [Files.MinVolume, Files.MaxVolume]. Fixed clients are replayed verbatim.
type WorkloadSpec struct {
	Seed    int64         `yaml:"seed"`
	Clients int           `yaml:"clients"` // number of generated clients
	Rate    float64       `yaml:"rate"`    // clients per tick
	Arrival ArrivalSpec   `yaml:"arrival"`
	Files   FilePackSpec  `yaml:"files"`
	Fixed   []FixedClient `yaml:"fixed,omitempty"`
}

// ArrivalSpec configures the inter-arrival time process.
type ArrivalSpec struct {
	Process string   `yaml:"process"`
	CV      *float64 `yaml:"cv,omitempty"`
}

// FilePackSpec bounds the size of generated file packs.
type FilePackSpec struct {
	MinCount  int `yaml:"min_count"`
	MaxCount  int `yaml:"max_count"`
	MinVolume int `yaml:"min_volume"`
	MaxVolume int `yaml:"max_volume"`
}

// FixedClient is a hand-written client replayed at a fixed offset.
type FixedClient struct {
	ID    int64         `yaml:"id"`
	At    time.Duration `yaml:"at"`
	Files []float64     `yaml:"files"`
}

// DefaultFilePack draws 1 to 10 files of 1 to 1000 units each.
var DefaultFilePack = FilePackSpec{MinCount: 1, MaxCount: 10, MinVolume: 1, MaxVolume: 1000}

// DefaultWorkloadSpec returns a spec generating n clients at one client per tick.
func DefaultWorkloadSpec(n int, seed int64) *WorkloadSpec {
	return &WorkloadSpec{
		Seed:    seed,
		Clients: n,
		Rate:    1.0,
		Arrival: ArrivalSpec{Process: "poisson"},
		Files:   DefaultFilePack,
	}
}

var validArrivalProcesses = map[string]bool{"": true, "poisson": true, "gamma": true, "constant": true}

// IsValidArrivalProcess returns true if name is a recognized arrival process.
func IsValidArrivalProcess(name string) bool {
	return validArrivalProcesses[name]
}

// LoadWorkloadSpec reads and parses a YAML workload spec.
// Uses strict field checking: typos must cause errors.
func LoadWorkloadSpec(path string) (*WorkloadSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload spec: %w", err)
	}
	var spec WorkloadSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing workload spec: %w", err)
	}
	if spec.Files == (FilePackSpec{}) {
		spec.Files = DefaultFilePack
	}
	return &spec, nil
}

// Validate checks counts, rates and pack bounds.
func (s *WorkloadSpec) Validate() error {
	if s.Clients < 0 {
		return fmt.Errorf("clients must be non-negative, got %d", s.Clients)
	}
	if s.Clients > 0 {
		if math.IsNaN(s.Rate) || math.IsInf(s.Rate, 0) || s.Rate <= 0 {
			return fmt.Errorf("rate must be a positive number, got %v", s.Rate)
		}
		if !IsValidArrivalProcess(s.Arrival.Process) {
			return fmt.Errorf("unknown arrival process %q", s.Arrival.Process)
		}
		if s.Arrival.CV != nil && *s.Arrival.CV <= 0 {
			return fmt.Errorf("arrival cv must be positive, got %v", *s.Arrival.CV)
		}
		f := s.Files
		if f.MinCount < 1 || f.MaxCount < f.MinCount {
			return fmt.Errorf("file count range [%d, %d] is invalid", f.MinCount, f.MaxCount)
		}
		if f.MinVolume < 1 || f.MaxVolume < f.MinVolume {
			return fmt.Errorf("file volume range [%d, %d] is invalid", f.MinVolume, f.MaxVolume)
		}
	}
	seen := make(map[int64]bool, len(s.Fixed))
	for i, c := range s.Fixed {
		if c.ID <= 0 {
			return fmt.Errorf("fixed client %d: id must be positive, got %d", i, c.ID)
		}
		if seen[c.ID] {
			return fmt.Errorf("fixed client %d: duplicate id %d", i, c.ID)
		}
		seen[c.ID] = true
		if c.At < 0 {
			return fmt.Errorf("fixed client %d: negative offset %v", c.ID, c.At)
		}
		if len(c.Files) == 0 {
			return fmt.Errorf("fixed client %d: empty file pack", c.ID)
		}
	}
	return nil
}
