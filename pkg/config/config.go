// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Collection, Forward, Bisection, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ot/ds2i/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Collection CollectionConfig `yaml:"collection"`
	Forward    ForwardConfig    `yaml:"forward"`
	Bisection  BisectionConfig  `yaml:"bisection"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// CollectionConfig names the input and output collection basenames. The
// reader opens <input>.docs, <input>.freqs, and <input>.sizes; the reorder
// writer produces the same trio under <output> plus <output>.mapping.
type CollectionConfig struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// ForwardConfig controls forward-index construction and snapshotting.
type ForwardConfig struct {
	// MinListLength excludes posting lists shorter than this from the
	// forward index. Tunable: very short lists gain little from reordering
	// relative to their forward-index cost.
	MinListLength int `yaml:"minListLength"`
	// SnapshotPath, when set, is read if present (skipping the build) and
	// written after a from-scratch build.
	SnapshotPath string `yaml:"snapshotPath"`
}

// BisectionConfig controls the recursive bisection run.
type BisectionConfig struct {
	// Depth is the recursion depth; 0 means ceil(log2(N)).
	Depth int `yaml:"depth"`
	// MaxIterations is the swap-iteration budget per partition.
	MaxIterations int `yaml:"maxIterations"`
	// ParallelDepth is how many recursion levels fork into parallel tasks
	// before falling back to sequential execution.
	ParallelDepth int `yaml:"parallelDepth"`
	// CacheDepth is how many recursion levels near the root use the cached
	// gain function.
	CacheDepth int `yaml:"cacheDepth"`
	// Workers bounds data-parallel gain computation; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`
	// PrecomputeDegreeLimit enables the tabulated gain function for degrees
	// below the limit; 0 disables precomputation.
	PrecomputeDegreeLimit int `yaml:"precomputeDegreeLimit"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server exposed for the
// duration of a run.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks scalar ranges that would otherwise surface deep inside the
// pipeline.
func (c *Config) Validate() error {
	if c.Forward.MinListLength < 0 {
		return errors.Newf(errors.ErrInvalidConfig, errors.ExitConfigInvalid,
			"minListLength must be >= 0, got %d", c.Forward.MinListLength)
	}
	if c.Bisection.Depth < 0 {
		return errors.Newf(errors.ErrInvalidConfig, errors.ExitConfigInvalid,
			"depth must be >= 0, got %d", c.Bisection.Depth)
	}
	if c.Bisection.MaxIterations < 1 {
		return errors.Newf(errors.ErrInvalidConfig, errors.ExitConfigInvalid,
			"maxIterations must be >= 1, got %d", c.Bisection.MaxIterations)
	}
	if c.Bisection.Workers < 0 {
		return errors.Newf(errors.ErrInvalidConfig, errors.ExitConfigInvalid,
			"workers must be >= 0, got %d", c.Bisection.Workers)
	}
	return nil
}

// defaultConfig returns a Config with the defaults used by the reference
// reordering runs.
func defaultConfig() *Config {
	return &Config{
		Forward: ForwardConfig{
			MinListLength: 4096,
		},
		Bisection: BisectionConfig{
			Depth:         0,
			MaxIterations: 20,
			ParallelDepth: 10,
			CacheDepth:    3,
			Workers:       0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DS2I_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DS2I_COLLECTION_INPUT"); v != "" {
		cfg.Collection.Input = v
	}
	if v := os.Getenv("DS2I_COLLECTION_OUTPUT"); v != "" {
		cfg.Collection.Output = v
	}
	if v := os.Getenv("DS2I_FORWARD_MIN_LIST_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Forward.MinListLength = n
		}
	}
	if v := os.Getenv("DS2I_FORWARD_SNAPSHOT_PATH"); v != "" {
		cfg.Forward.SnapshotPath = v
	}
	if v := os.Getenv("DS2I_BISECTION_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bisection.Depth = n
		}
	}
	if v := os.Getenv("DS2I_BISECTION_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bisection.MaxIterations = n
		}
	}
	if v := os.Getenv("DS2I_BISECTION_PARALLEL_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bisection.ParallelDepth = n
		}
	}
	if v := os.Getenv("DS2I_BISECTION_CACHE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bisection.CacheDepth = n
		}
	}
	if v := os.Getenv("DS2I_BISECTION_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bisection.Workers = n
		}
	}
	if v := os.Getenv("DS2I_BISECTION_PRECOMPUTE_DEGREE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bisection.PrecomputeDegreeLimit = n
		}
	}
	if v := os.Getenv("DS2I_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DS2I_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("DS2I_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("DS2I_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
