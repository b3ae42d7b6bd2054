package cmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auctionio/auctionio/sim/workload"
)

// repoDefaults locates the defaults.yaml shipped at the repository root.
func repoDefaults(t *testing.T) string {
	t.Helper()
	for _, path := range []string{"defaults.yaml", "../defaults.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	t.Skip("defaults.yaml not found, skipping integration test")
	return ""
}

func TestLoadDefaults_ShippedPresetsAreValid(t *testing.T) {
	d, err := loadDefaults(repoDefaults(t))
	require.NoError(t, err)
	require.NotEmpty(t, d.Workloads)

	for name := range d.Workloads {
		spec, err := d.Workload(name)
		require.NoError(t, err, name)
		assert.NoError(t, spec.Validate(), name)
	}
}

func TestDefaults_Workload_FillsFilePackAndCopies(t *testing.T) {
	// GIVEN a preset with fixed clients and no files section
	path := writeFile(t, "defaults.yaml", `
version: "1"
workloads:
  pair:
    clients: 0
    fixed:
      - id: 1
        files: [2]
`)
	d, err := loadDefaults(path)
	require.NoError(t, err)

	// WHEN the preset is taken and modified
	spec, err := d.Workload("pair")
	require.NoError(t, err)
	spec.Fixed[0].ID = 99

	// THEN it got the default pack bounds and the stored preset is untouched
	assert.Equal(t, workload.DefaultFilePack, spec.Files)
	assert.Equal(t, int64(1), d.Workloads["pair"].Fixed[0].ID)
}

func TestDefaults_Workload_UnknownListsAvailable(t *testing.T) {
	d := &Defaults{Workloads: map[string]workload.WorkloadSpec{"b": {}, "a": {}}}
	_, err := d.Workload("c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: a, b")
}

func TestLoadDefaults_UnknownField_Errors(t *testing.T) {
	path := writeFile(t, "defaults.yaml", "version: \"1\"\nmodels: []\n")
	_, err := loadDefaults(path)
	assert.Error(t, err)
}

func TestResolveWorkload_Preset(t *testing.T) {
	fs := parseFlags(t, "--workload", "contested", "--defaults", repoDefaults(t))
	cfg, err := resolveConfig(fs)
	require.NoError(t, err)

	spec, err := resolveWorkload(fs, cfg)
	require.NoError(t, err)
	assert.Len(t, spec.Fixed, 3)
	assert.Equal(t, workload.DefaultFilePack, spec.Files)
}
