package cmd

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/auctionio/auctionio/sim/workload"
)

// Defaults represents the full defaults.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Defaults struct {
	Version   string                           `yaml:"version"`
	Workloads map[string]workload.WorkloadSpec `yaml:"workloads"`
}

// loadDefaults parses defaults.yaml with strict field checking: typos must cause errors.
func loadDefaults(path string) (*Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading defaults file: %w", err)
	}
	var d Defaults
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&d); err != nil {
		return nil, fmt.Errorf("parsing defaults file %s: %w", path, err)
	}
	return &d, nil
}

// Workload returns a copy of the named preset. Presets that omit the files
// section get the default pack bounds.
func (d *Defaults) Workload(name string) (*workload.WorkloadSpec, error) {
	preset, ok := d.Workloads[name]
	if !ok {
		names := make([]string, 0, len(d.Workloads))
		for n := range d.Workloads {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown workload preset %q (available: %s)", name, strings.Join(names, ", "))
	}
	spec := preset
	spec.Fixed = append([]workload.FixedClient(nil), preset.Fixed...)
	if spec.Files == (workload.FilePackSpec{}) {
		spec.Files = workload.DefaultFilePack
	}
	return &spec, nil
}
