// Package config holds the engine parameters, loadable from a YAML file.
// Command-line flags override whatever the file sets.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config tunes a precompute run.
type Config struct {
	// Workers is the shortest-path worker pool size.
	Workers int `yaml:"workers"`
	// SampleSize bounds how many aggregation nodes become synthetic clients.
	SampleSize int `yaml:"sample_size"`
	// Seed drives the stratified sample; a fixed seed reproduces the run.
	Seed int64 `yaml:"seed"`
	// SelfLatency is the latency assigned to zero-length paths, in the
	// same unit as edge latencies. Must be positive.
	SelfLatency float64 `yaml:"self_latency"`
	// ProgressSeconds is the progress poll interval.
	ProgressSeconds int `yaml:"progress_seconds"`
	// StallPolls is how many consecutive no-progress polls count as a
	// stalled run.
	StallPolls int `yaml:"stall_polls"`
}

// Default returns the built-in configuration: one worker per core and a
// moderate sample.
func Default() Config {
	return Config{
		Workers:         runtime.NumCPU(),
		SampleSize:      100,
		Seed:            1,
		SelfLatency:     0.01,
		ProgressSeconds: 5,
		StallPolls:      24,
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects parameter values the engine cannot run with.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be >= 1, got %d", c.Workers)
	}
	if c.SampleSize < 0 {
		return fmt.Errorf("config: sample_size must be >= 0, got %d", c.SampleSize)
	}
	if c.SelfLatency <= 0 {
		return fmt.Errorf("config: self_latency must be positive, got %g", c.SelfLatency)
	}
	if c.ProgressSeconds < 1 {
		return fmt.Errorf("config: progress_seconds must be >= 1, got %d", c.ProgressSeconds)
	}
	if c.StallPolls < 1 {
		return fmt.Errorf("config: stall_polls must be >= 1, got %d", c.StallPolls)
	}
	return nil
}
