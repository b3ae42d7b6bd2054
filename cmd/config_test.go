package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auctionio/auctionio/sim"
	"github.com/auctionio/auctionio/sim/trace"
)

// parseFlags registers the shared flags on a fresh set, resetting every bound
// variable to its default, and parses args.
func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolveConfig_Defaults(t *testing.T) {
	cfg, err := resolveConfig(parseFlags(t))
	require.NoError(t, err)

	want := sim.DefaultConfig()
	want.Trace = trace.TraceConfig{Level: trace.TraceLevelNone, CandidateK: 3}
	assert.Equal(t, want, cfg)
}

func TestResolveConfig_FlagsOverrideConfigFile(t *testing.T) {
	// GIVEN a config file setting hosts, tick and seed
	path := writeFile(t, "config.yaml", "hosts: 8\ntick: 500ms\nseed: 9\n")

	// WHEN --hosts is set explicitly and --seed is left at its default
	cfg, err := resolveConfig(parseFlags(t, "--config", path, "--hosts", "3", "--reenqueue", "keep"))
	require.NoError(t, err)

	// THEN the explicit flag wins and the file value survives the untouched flag
	assert.Equal(t, 3, cfg.Hosts)
	assert.Equal(t, 500*time.Millisecond, cfg.Tick)
	assert.Equal(t, int64(9), cfg.Seed)
	assert.Equal(t, sim.ReenqueueKeep, cfg.Reenqueue)
}

func TestResolveConfig_AdmissionFlags(t *testing.T) {
	cfg, err := resolveConfig(parseFlags(t, "--admission", "queue-cap", "--admission-capacity", "10"))
	require.NoError(t, err)
	assert.Equal(t, sim.AdmissionConfig{Policy: "queue-cap", Capacity: 10}, cfg.Admission)
}

func TestResolveConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"tick below minimum", []string{"--tick", "50ms"}},
		{"unknown reenqueue mode", []string{"--reenqueue", "twice"}},
		{"unknown failure policy", []string{"--failure-policy", "ignore"}},
		{"failure rate of one", []string{"--failure-rate", "1"}},
		{"unknown trace level", []string{"--trace", "everything"}},
		{"token bucket without capacity", []string{"--admission", "token-bucket"}},
		{"missing config file", []string{"--config", "/nonexistent/config.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveConfig(parseFlags(t, tt.args...))
			assert.Error(t, err)
		})
	}
}

func TestResolveWorkload_GeneratedFromFlags(t *testing.T) {
	fs := parseFlags(t, "--clients", "12", "--rate", "0.5", "--arrival", "gamma", "--arrival-cv", "2")
	cfg, err := resolveConfig(fs)
	require.NoError(t, err)

	spec, err := resolveWorkload(fs, cfg)
	require.NoError(t, err)
	assert.Equal(t, 12, spec.Clients)
	assert.Equal(t, 0.5, spec.Rate)
	assert.Equal(t, "gamma", spec.Arrival.Process)
	require.NotNil(t, spec.Arrival.CV)
	assert.Equal(t, 2.0, *spec.Arrival.CV)
	assert.Equal(t, cfg.Seed, spec.Seed)
}

func TestResolveWorkload_ScenarioSeedOverride(t *testing.T) {
	path := writeFile(t, "scenario.yaml", "seed: 42\nclients: 5\nrate: 1.0\n")

	// GIVEN no --seed, the scenario keeps its own seed
	fs := parseFlags(t, "--scenario", path)
	spec, err := resolveWorkload(fs, sim.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(42), spec.Seed)

	// WHEN --seed is set explicitly it overrides the scenario
	fs = parseFlags(t, "--scenario", path, "--seed", "100")
	spec, err = resolveWorkload(fs, sim.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(100), spec.Seed)
}

func TestResolveWorkload_ScenarioAndPreset_MutuallyExclusive(t *testing.T) {
	fs := parseFlags(t, "--scenario", "a.yaml", "--workload", "classic")
	_, err := resolveWorkload(fs, sim.DefaultConfig())
	assert.Error(t, err)
}
