// Package config loads engine settings from YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/tdd/internal/parallel"
)

// Config holds every tunable of an engine.
type Config struct {
	// Epsilon is the weight tolerance: magnitudes at or below it are zero and
	// weights are quantized to multiples of it for hashing.
	Epsilon float64 `yaml:"epsilon"`

	// Coordinator names the order coordinator: "trivial" or "global".
	Coordinator string `yaml:"coordinator"`

	// SumCacheLimit bounds the sum memo table; it is cleared when full. Zero
	// means unbounded.
	SumCacheLimit int `yaml:"sum_cache_limit"`

	Parallel parallel.Config `yaml:"parallel"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Epsilon:       1e-10,
		Coordinator:   "trivial",
		SumCacheLimit: 1 << 20,
		Parallel:      parallel.DefaultConfig(),
		LogLevel:      "info",
	}
}

// Load reads path over the defaults, applies TDD_* environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TDD_EPSILON"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TDD_EPSILON: %w", err)
		}
		c.Epsilon = f
	}
	if v := os.Getenv("TDD_COORDINATOR"); v != "" {
		c.Coordinator = v
	}
	if v := os.Getenv("TDD_SUM_CACHE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TDD_SUM_CACHE_LIMIT: %w", err)
		}
		c.SumCacheLimit = n
	}
	if v := os.Getenv("TDD_PARALLEL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TDD_PARALLEL: %w", err)
		}
		c.Parallel.Enabled = b
	}
	if v := os.Getenv("TDD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if !(c.Epsilon > 0) {
		return fmt.Errorf("epsilon must be > 0, got %g", c.Epsilon)
	}
	switch c.Coordinator {
	case "trivial", "trival", "global", "global_order":
	default:
		return fmt.Errorf("unknown coordinator %q", c.Coordinator)
	}
	if c.SumCacheLimit < 0 {
		return fmt.Errorf("sum_cache_limit must be >= 0")
	}
	if c.Parallel.NumWorkers < 0 {
		return fmt.Errorf("parallel.workers must be >= 0")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level of c.LogLevel, defaulting to info.
func (c Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// ParseLevel maps a level name to its slog level. The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Save writes c as YAML to path.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
