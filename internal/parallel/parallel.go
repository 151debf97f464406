// Package parallel provides the worker fan-out used by diagram construction.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled    bool `yaml:"enabled"`   // Whether parallel execution is enabled.
	NumWorkers int  `yaml:"workers"`   // Maximum number of concurrent workers.
	MinItems   int  `yaml:"min_items"` // Minimum number of items before fanning out.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
		MinItems:   2,
	}
}

// For executes f(i) for i in [0, n), concurrently when cfg allows it, and
// returns the first error. Falls back to sequential execution if parallelism is
// disabled or n is too small.
func For(n int, f func(i int) error, cfg Config) error {
	if !cfg.Enabled || n < cfg.MinItems || n < 2 {
		for i := 0; i < n; i++ {
			if err := f(i); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	if cfg.NumWorkers > 0 {
		g.SetLimit(cfg.NumWorkers)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return f(i)
		})
	}
	return g.Wait()
}
