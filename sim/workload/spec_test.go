package workload

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpec(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadWorkloadSpec_ParsesFixedClientsAndDefaults(t *testing.T) {
	path := writeSpec(t, `
seed: 9
clients: 4
rate: 0.5
arrival:
  process: gamma
  cv: 2.0
fixed:
  - id: 1
    at: 250ms
    files: [3, 1]
`)
	spec, err := LoadWorkloadSpec(path)
	require.NoError(t, err)
	require.NoError(t, spec.Validate())

	assert.Equal(t, int64(9), spec.Seed)
	assert.Equal(t, 4, spec.Clients)
	assert.Equal(t, "gamma", spec.Arrival.Process)
	require.NotNil(t, spec.Arrival.CV)
	assert.Equal(t, 2.0, *spec.Arrival.CV)
	assert.Equal(t, DefaultFilePack, spec.Files, "omitted files section uses the default pack bounds")
	require.Len(t, spec.Fixed, 1)
	assert.Equal(t, 250*time.Millisecond, spec.Fixed[0].At)
	assert.Equal(t, []float64{3, 1}, spec.Fixed[0].Files)
}

func TestLoadWorkloadSpec_UnknownField_Errors(t *testing.T) {
	path := writeSpec(t, "clients: 3\nrat: 1.0\n")
	_, err := LoadWorkloadSpec(path)
	assert.Error(t, err)
}

func TestLoadWorkloadSpec_MissingFile_Errors(t *testing.T) {
	_, err := LoadWorkloadSpec(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWorkloadSpec_Validate(t *testing.T) {
	cv := -1.0
	tests := []struct {
		name   string
		mutate func(*WorkloadSpec)
	}{
		{"negative clients", func(s *WorkloadSpec) { s.Clients = -1 }},
		{"zero rate", func(s *WorkloadSpec) { s.Rate = 0 }},
		{"unknown process", func(s *WorkloadSpec) { s.Arrival.Process = "weibull" }},
		{"negative cv", func(s *WorkloadSpec) { s.Arrival.CV = &cv }},
		{"inverted count range", func(s *WorkloadSpec) { s.Files.MinCount, s.Files.MaxCount = 5, 2 }},
		{"zero volume", func(s *WorkloadSpec) { s.Files.MinVolume = 0 }},
		{"fixed without id", func(s *WorkloadSpec) { s.Fixed = []FixedClient{{Files: []float64{1}}} }},
		{"fixed duplicate id", func(s *WorkloadSpec) {
			s.Fixed = []FixedClient{{ID: 1, Files: []float64{1}}, {ID: 1, Files: []float64{2}}}
		}},
		{"fixed empty pack", func(s *WorkloadSpec) { s.Fixed = []FixedClient{{ID: 1}} }},
		{"fixed negative offset", func(s *WorkloadSpec) { s.Fixed = []FixedClient{{ID: 1, At: -time.Second, Files: []float64{1}}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := DefaultWorkloadSpec(3, 1)
			tt.mutate(spec)
			assert.Error(t, spec.Validate())
		})
	}
	assert.NoError(t, DefaultWorkloadSpec(3, 1).Validate())
}
