package sim

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigBundle holds simulation configuration loadable from a YAML file.
// Nil pointer fields mean "not set in YAML" and leave the base Config untouched.
// String fields use empty string for "not set".
type ConfigBundle struct {
	Hosts        *int             `yaml:"hosts"`
	Tick         *time.Duration   `yaml:"tick"`
	PollInterval *time.Duration   `yaml:"poll_interval"`
	Horizon      *time.Duration   `yaml:"horizon"`
	Seed         *int64           `yaml:"seed"`
	Reenqueue    string           `yaml:"reenqueue"`
	Retry        RetryBundle      `yaml:"retry"`
	Failure      FailureBundle    `yaml:"failure"`
	Admission    *AdmissionConfig `yaml:"admission"`
	Transfer     *TransferConfig  `yaml:"transfer"`
}

// RetryBundle holds selection retry budget configuration.
type RetryBundle struct {
	MaxAttempts *int           `yaml:"max_attempts"`
	Timeout     *time.Duration `yaml:"timeout"`
}

// FailureBundle holds failed-transfer policy configuration.
type FailureBundle struct {
	Policy      string `yaml:"policy"`
	MaxAttempts *int   `yaml:"max_attempts"`
}

// LoadConfigBundle reads and parses a YAML configuration file.
// Unknown keys are errors so that typos do not silently fall back to defaults.
func LoadConfigBundle(path string) (*ConfigBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfigBundle(data)
}

// ParseConfigBundle parses YAML configuration from memory.
func ParseConfigBundle(data []byte) (*ConfigBundle, error) {
	var bundle ConfigBundle
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &bundle, nil
}

// Validate checks that the names and ranges set in the bundle are valid.
func (b *ConfigBundle) Validate() error {
	if !IsValidReenqueueMode(b.Reenqueue) {
		return fmt.Errorf("unknown reenqueue mode %q", b.Reenqueue)
	}
	if !IsValidFailurePolicy(b.Failure.Policy) {
		return fmt.Errorf("unknown failure policy %q", b.Failure.Policy)
	}
	if b.Hosts != nil && *b.Hosts < 1 {
		return fmt.Errorf("hosts must be >= 1, got %d", *b.Hosts)
	}
	if b.Tick != nil && *b.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %v", *b.Tick)
	}
	if b.Retry.MaxAttempts != nil && *b.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry max_attempts must be non-negative, got %d", *b.Retry.MaxAttempts)
	}
	if b.Failure.MaxAttempts != nil && *b.Failure.MaxAttempts < 1 {
		return fmt.Errorf("failure max_attempts must be >= 1, got %d", *b.Failure.MaxAttempts)
	}
	if b.Admission != nil {
		if err := b.Admission.Validate(); err != nil {
			return err
		}
	}
	if b.Transfer != nil {
		return b.Transfer.Validate()
	}
	return nil
}

// Apply overlays the fields set in the bundle onto cfg.
func (b *ConfigBundle) Apply(cfg *Config) {
	if b.Hosts != nil {
		cfg.Hosts = *b.Hosts
	}
	if b.Tick != nil {
		cfg.Tick = *b.Tick
	}
	if b.PollInterval != nil {
		cfg.PollInterval = *b.PollInterval
	}
	if b.Horizon != nil {
		cfg.Horizon = *b.Horizon
	}
	if b.Seed != nil {
		cfg.Seed = *b.Seed
	}
	if b.Reenqueue != "" {
		cfg.Reenqueue = ReenqueueMode(b.Reenqueue)
	}
	if b.Retry.MaxAttempts != nil {
		cfg.Retry.MaxAttempts = *b.Retry.MaxAttempts
	}
	if b.Retry.Timeout != nil {
		cfg.Retry.Timeout = *b.Retry.Timeout
	}
	if b.Failure.Policy != "" {
		cfg.FailurePolicy = b.Failure.Policy
	}
	if b.Failure.MaxAttempts != nil {
		cfg.FailureMaxAttempts = *b.Failure.MaxAttempts
	}
	if b.Admission != nil {
		cfg.Admission = *b.Admission
	}
	if b.Transfer != nil {
		cfg.Transfer = *b.Transfer
	}
}
