package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/auctionio/auctionio/sim"
	"github.com/auctionio/auctionio/sim/trace"
	"github.com/auctionio/auctionio/sim/workload"
)

// resolveConfig builds the run configuration: defaults, then the --config
// file, then flags. A flag only wins when it was set explicitly, so an
// untouched flag default never overwrites a value from the file.
func resolveConfig(fs *pflag.FlagSet) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		bundle, err := sim.LoadConfigBundle(configPath)
		if err != nil {
			return cfg, err
		}
		if err := bundle.Validate(); err != nil {
			return cfg, fmt.Errorf("config %s: %w", configPath, err)
		}
		bundle.Apply(&cfg)
		logrus.Infof("Loaded config from %s", configPath)
	}

	if fs.Changed("hosts") {
		cfg.Hosts = hosts
	}
	if fs.Changed("tick") {
		cfg.Tick = tick
	}
	if fs.Changed("poll-interval") {
		cfg.PollInterval = pollInterval
	}
	if fs.Changed("horizon") {
		cfg.Horizon = horizon
	}
	if fs.Changed("seed") {
		cfg.Seed = seed
	}
	if fs.Changed("reenqueue") {
		cfg.Reenqueue = sim.ReenqueueMode(reenqueue)
	}
	if fs.Changed("retry-attempts") {
		cfg.Retry.MaxAttempts = retryAttempts
	}
	if fs.Changed("retry-timeout") {
		cfg.Retry.Timeout = retryTimeout
	}
	if fs.Changed("failure-policy") {
		cfg.FailurePolicy = failurePolicy
	}
	if fs.Changed("failure-attempts") {
		cfg.FailureMaxAttempts = failureAttempts
	}
	if fs.Changed("transfer-steps") {
		cfg.Transfer.Steps = transferSteps
	}
	if fs.Changed("transfer-step-fraction") {
		cfg.Transfer.StepFraction = transferStepFraction
	}
	if fs.Changed("transfer-per-volume") {
		cfg.Transfer.PerVolume = transferPerVolume
	}
	if fs.Changed("failure-rate") {
		cfg.Transfer.FailureRate = transferFailureRate
	}
	if fs.Changed("admission") {
		cfg.Admission.Policy = admissionPolicy
	}
	if fs.Changed("admission-capacity") {
		cfg.Admission.Capacity = admissionCapacity
	}
	if fs.Changed("admission-refill") {
		cfg.Admission.RefillRate = admissionRefill
	}
	cfg.Trace = trace.TraceConfig{Level: trace.TraceLevel(traceLevel), CandidateK: traceCandidates}

	if cfg.Tick < sim.MinTick {
		return cfg, fmt.Errorf("tick %v is below the minimum of %v", cfg.Tick, sim.MinTick)
	}
	return cfg, cfg.Validate()
}

// resolveWorkload picks the workload source (--scenario file, --workload
// preset, or generated from flags) and applies explicit flag overrides.
// Without an explicit --seed a scenario keeps its own seed.
func resolveWorkload(fs *pflag.FlagSet, cfg sim.Config) (*workload.WorkloadSpec, error) {
	var spec *workload.WorkloadSpec
	switch {
	case scenarioPath != "" && workloadName != "":
		return nil, fmt.Errorf("--scenario and --workload are mutually exclusive")
	case scenarioPath != "":
		s, err := workload.LoadWorkloadSpec(scenarioPath)
		if err != nil {
			return nil, err
		}
		spec = s
		logrus.Infof("Loaded workload from %s", scenarioPath)
	case workloadName != "":
		defaults, err := loadDefaults(defaultsPath)
		if err != nil {
			return nil, err
		}
		s, err := defaults.Workload(workloadName)
		if err != nil {
			return nil, err
		}
		spec = s
		logrus.Infof("Using preset workload %s", workloadName)
	default:
		spec = workload.DefaultWorkloadSpec(clients, cfg.Seed)
	}

	if fs.Changed("seed") {
		spec.Seed = seed
	}
	if fs.Changed("clients") {
		spec.Clients = clients
	}
	if fs.Changed("rate") {
		spec.Rate = rate
	}
	if fs.Changed("arrival") {
		spec.Arrival.Process = arrivalProcess
	}
	if fs.Changed("arrival-cv") {
		cv := arrivalCV
		spec.Arrival.CV = &cv
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}
