package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.GreaterOrEqual(t, cfg.Workers, 1)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	doc := `
workers: 3
sample_size: 250
seed: 42
self_latency: 0.05
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Workers)
	require.Equal(t, 250, cfg.SampleSize)
	require.Equal(t, int64(42), cfg.Seed)
	require.Equal(t, 0.05, cfg.SelfLatency)
	// Untouched keys keep their defaults.
	require.Equal(t, Default().StallPolls, cfg.StallPolls)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 0\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative sample", func(c *Config) { c.SampleSize = -1 }},
		{"zero self latency", func(c *Config) { c.SelfLatency = 0 }},
		{"zero progress interval", func(c *Config) { c.ProgressSeconds = 0 }},
		{"zero stall polls", func(c *Config) { c.StallPolls = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
