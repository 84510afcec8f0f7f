package monitor

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML support for strings like "30s".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the declarative trigger configuration, normally loaded from
// triggers.yaml in the config directory.
type Config struct {
	SamplePeriod Duration  `yaml:"sample_period"`
	Triggers     []Trigger `yaml:"triggers"`

	// DriftAction is the action taken when the artifact-drift source
	// confirms an out-of-band modification (warn or rollback).
	DriftAction Action `yaml:"drift_action"`
}

// DefaultConfig returns the trigger set used when no triggers.yaml exists:
// warn on memory pressure, roll back on an error cascade, emergency-stop
// on a crash loop.
func DefaultConfig() *Config {
	return &Config{
		SamplePeriod: Duration(DefaultSamplePeriod),
		DriftAction:  ActionWarn,
		Triggers: []Trigger{
			{
				Name:      "memory-pressure",
				Kind:      KindPerformance,
				Action:    ActionWarn,
				Threshold: Threshold{MaxMemoryPercent: 85},
			},
			{
				Name:      "error-cascade",
				Kind:      KindStability,
				Action:    ActionRollback,
				Threshold: Threshold{MaxConsecutiveErrors: 5},
			},
			{
				Name:      "crash-loop",
				Kind:      KindStability,
				Action:    ActionEmergencyStop,
				Threshold: Threshold{MaxCrashCount: 3, Window: Duration(10 * time.Minute)},
			},
		},
	}
}

// LoadConfig reads trigger configuration from a YAML file. A missing file
// yields DefaultConfig without an error; an invalid trigger fails loudly.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read trigger config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse trigger config: %w", err)
	}

	if cfg.SamplePeriod <= 0 {
		cfg.SamplePeriod = Duration(DefaultSamplePeriod)
	}
	if cfg.DriftAction == "" {
		cfg.DriftAction = ActionWarn
	}
	if cfg.DriftAction != ActionWarn && cfg.DriftAction != ActionRollback {
		return nil, fmt.Errorf("drift_action must be warn or rollback, got %q", cfg.DriftAction)
	}
	for _, t := range cfg.Triggers {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}
