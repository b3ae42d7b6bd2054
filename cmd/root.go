package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/auctionio/auctionio/sim"
	"github.com/auctionio/auctionio/sim/trace"
	"github.com/auctionio/auctionio/sim/workload"
)

var (
	// Simulation config
	hosts                int           // Number of concurrent hosts
	tick                 time.Duration // Unit of wait time in the score formula
	pollInterval         time.Duration // Longest an idle host sleeps before asking again
	horizon              time.Duration // Wall-time cap on the run (0 = until drained)
	seed                 int64         // Seed for workload generation and transfer faults
	reenqueue            string        // Fate of clients with files left: drop, reset, keep
	retryAttempts        int           // Selection attempts per host request
	retryTimeout         time.Duration // Time budget across selection attempts
	failurePolicy        string        // Failed transfer policy: discard, retry
	failureAttempts      int           // Attempts per file under the retry policy
	transferSteps        int           // Progress steps per transfer
	transferStepFraction float64       // Ticks per progress step
	transferPerVolume    float64       // Extra ticks per unit of file volume
	transferFailureRate  float64       // Probability that a transfer fails
	admissionPolicy      string        // Admission policy: always-admit, token-bucket, queue-cap
	admissionCapacity    float64       // Token bucket capacity or queue cap
	admissionRefill      float64       // Token bucket refill rate (files per tick)

	// Workload config
	clients        int     // Number of generated clients
	rate           float64 // Client arrivals per tick
	arrivalProcess string  // poisson, gamma, constant
	arrivalCV      float64 // Coefficient of variation for gamma arrivals
	workloadName   string  // Preset workload from the defaults file
	defaultsPath   string  // Path to defaults.yaml
	scenarioPath   string  // Path to a workload YAML file
	configPath     string  // Path to a config YAML file

	// Output
	logLevel        string // Log verbosity level
	traceLevel      string // Decision trace level: none, decisions
	traceCandidates int    // Runner-up candidates kept per traced assignment
	traceOut        string // File to write the decision trace to (JSON)
	metricsAddr     string // Address to serve Prometheus metrics on while running
	metricsOut      string // File to write the final Prometheus metrics to
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "auctionio",
	Short: "Concurrent host scheduler simulation with wait/volume scoring",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduling simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		cfg, err := resolveConfig(cmd.Flags())
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		spec, err := resolveWorkload(cmd.Flags(), cfg)
		if err != nil {
			logrus.Fatalf("Invalid workload: %v", err)
		}
		arrivals, err := workload.GenerateArrivals(spec, cfg.Tick)
		if err != nil {
			logrus.Fatalf("Unable to generate arrivals: %v", err)
		}

		reg := prometheus.NewRegistry()
		prom := sim.NewPromObserver(reg)
		if metricsAddr != "" {
			srv := serveMetrics(metricsAddr, reg)
			defer shutdownMetrics(srv)
		}

		c, err := sim.NewCoordinator(cfg, arrivals, sim.Collaborators{
			Observer: sim.Observers{&sim.LogObserver{}, prom},
		})
		if err != nil {
			logrus.Fatalf("Unable to create simulation: %v", err)
		}

		logrus.Infof("Starting simulation %s with %d hosts, %d clients, tick=%v, reenqueue=%s, failure=%s, admission=%s",
			c.RunID(), cfg.Hosts, len(arrivals), cfg.Tick, cfg.Reenqueue, cfg.FailurePolicy, cfg.Admission.Policy)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		res, runErr := c.Run(ctx)

		res.Metrics.Print(os.Stdout)
		printResult(os.Stdout, res)
		if res.Unserved > 0 {
			if standings, err := c.Standings(); err == nil {
				printStandings(os.Stdout, standings)
			}
		}
		if res.Trace != nil {
			printTraceSummary(os.Stdout, trace.Summarize(res.Trace))
			if traceOut != "" {
				if err := writeTrace(traceOut, res.Trace); err != nil {
					logrus.Errorf("Unable to write trace: %v", err)
				}
			}
		}
		if metricsOut != "" {
			if err := writeMetricsFile(metricsOut, reg); err != nil {
				logrus.Errorf("Unable to write metrics: %v", err)
			}
		}
		if runErr != nil {
			logrus.Fatalf("Simulation halted: %v", runErr)
		}

		logrus.Info("Simulation complete.")
	},
}

// validateCmd checks a configuration and workload without running them
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and workload without running",
	RunE: func(cmd *cobra.Command, args []string) error {
		setLogLevel()

		cfg, err := resolveConfig(cmd.Flags())
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		spec, err := resolveWorkload(cmd.Flags(), cfg)
		if err != nil {
			return fmt.Errorf("invalid workload: %w", err)
		}
		arrivals, err := workload.GenerateArrivals(spec, cfg.Tick)
		if err != nil {
			return fmt.Errorf("invalid workload: %w", err)
		}
		printValidation(cmd.OutOrStdout(), cfg, arrivals)
		return nil
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerFlags binds the flags shared by run and validate to fs.
func registerFlags(fs *pflag.FlagSet) {
	def := sim.DefaultConfig()

	fs.StringVar(&configPath, "config", "", "Path to a YAML config file; flags override its values")
	fs.IntVar(&hosts, "hosts", def.Hosts, "Number of concurrent hosts")
	fs.DurationVar(&tick, "tick", def.Tick, fmt.Sprintf("Tick length, the unit of wait time (min %v)", sim.MinTick))
	fs.DurationVar(&pollInterval, "poll-interval", def.PollInterval, "Longest an idle host waits before asking for work again")
	fs.DurationVar(&horizon, "horizon", 0, "Wall-time cap on the run (0 = run until every client is served)")
	fs.Int64Var(&seed, "seed", def.Seed, "Seed for workload generation and transfer faults")
	fs.StringVar(&reenqueue, "reenqueue", string(def.Reenqueue), "Fate of clients with files left after a send (drop, reset, keep)")
	fs.IntVar(&retryAttempts, "retry-attempts", def.Retry.MaxAttempts, "Selection attempts per host request")
	fs.DurationVar(&retryTimeout, "retry-timeout", def.Retry.Timeout, "Time budget across selection attempts (0 = none)")
	fs.StringVar(&failurePolicy, "failure-policy", def.FailurePolicy, "Failed transfer policy (discard, retry)")
	fs.IntVar(&failureAttempts, "failure-attempts", def.FailureMaxAttempts, "Attempts per file under the retry policy")
	fs.IntVar(&transferSteps, "transfer-steps", def.Transfer.Steps, "Progress steps per transfer")
	fs.Float64Var(&transferStepFraction, "transfer-step-fraction", def.Transfer.StepFraction, "Ticks per progress step")
	fs.Float64Var(&transferPerVolume, "transfer-per-volume", def.Transfer.PerVolume, "Extra ticks per unit of file volume")
	fs.Float64Var(&transferFailureRate, "failure-rate", def.Transfer.FailureRate, "Probability in [0, 1) that a transfer fails")
	fs.StringVar(&admissionPolicy, "admission", "always-admit", "Admission policy (always-admit, token-bucket, queue-cap)")
	fs.Float64Var(&admissionCapacity, "admission-capacity", 0, "Token bucket capacity in files, or maximum queued clients for queue-cap")
	fs.Float64Var(&admissionRefill, "admission-refill", 0, "Token bucket refill rate in files per tick")

	fs.StringVar(&scenarioPath, "scenario", "", "Path to a workload YAML file")
	fs.StringVar(&workloadName, "workload", "", "Preset workload name from the defaults file")
	fs.StringVar(&defaultsPath, "defaults", "defaults.yaml", "Path to the defaults file holding workload presets")
	fs.IntVar(&clients, "clients", 30, "Number of generated clients")
	fs.Float64Var(&rate, "rate", 1.0, "Client arrivals per tick")
	fs.StringVar(&arrivalProcess, "arrival", "poisson", "Arrival process (poisson, gamma, constant)")
	fs.Float64Var(&arrivalCV, "arrival-cv", 1.0, "Coefficient of variation for gamma arrivals")

	fs.StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	fs.StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Decision trace level (none, decisions)")
	fs.IntVar(&traceCandidates, "trace-candidates", 3, "Runner-up candidates kept per traced assignment")
}

// init sets up CLI flags and subcommands
func init() {
	registerFlags(runCmd.Flags())
	runCmd.Flags().StringVar(&traceOut, "trace-out", "", "Write the decision trace as JSON to this file")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running (e.g. :9090)")
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write final Prometheus metrics in text format to this file")

	registerFlags(validateCmd.Flags())

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
