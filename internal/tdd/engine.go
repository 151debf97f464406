// Package tdd is the public surface of the decision-diagram engine: dense
// conversion, axis-order bookkeeping, and the sum, index, contract and permute
// operations over canonical diagrams.
package tdd

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/born-ml/tdd/internal/algebra"
	"github.com/born-ml/tdd/internal/config"
	"github.com/born-ml/tdd/internal/metrics"
	"github.com/born-ml/tdd/internal/node"
	"github.com/born-ml/tdd/internal/order"
	"github.com/born-ml/tdd/internal/parallel"
)

// Engine owns one unique table with its caches and the active order
// coordinator. All operations on diagrams of an engine are serialized by the
// engine lock; construction may fan out internally.
//
// Nodes are never freed during a computation. Reset reclaims everything not
// reachable from the diagrams it is asked to keep.
type Engine struct {
	mu      sync.Mutex
	cfg     config.Config
	table   *node.Table
	alg     *algebra.Algebra
	coord   order.Coordinator
	metrics *metrics.Metrics
	log     *slog.Logger
	gen     uint64
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
}

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = l
	}
}

// WithRegisterer registers the engine metrics with reg instead of a private
// registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *engineOptions) {
		o.registerer = reg
	}
}

// NewEngine creates an engine from cfg.
func NewEngine(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	coord, err := order.New(cfg.Coordinator)
	if err != nil {
		return nil, err
	}
	options := &engineOptions{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(options)
	}

	m := metrics.New(options.registerer)
	table := node.NewTable(cfg.Epsilon, m)
	e := &Engine{
		cfg:     cfg,
		table:   table,
		alg:     algebra.New(table, cfg.SumCacheLimit, m),
		coord:   coord,
		metrics: m,
		log:     options.logger,
	}
	e.log.Debug("engine created",
		slog.Float64("epsilon", cfg.Epsilon),
		slog.String("coordinator", coord.Kind().String()),
		slog.Bool("parallel", cfg.Parallel.Enabled))
	return e, nil
}

// MustEngine is NewEngine for configurations known to be valid.
func MustEngine(cfg config.Config, opts ...Option) *Engine {
	e, err := NewEngine(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Coordinator returns the active order coordinator.
func (e *Engine) Coordinator() order.Coordinator {
	return e.coord
}

// Metrics returns the engine collectors.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// Node returns the read-only node id of the engine's table. Ids of an older
// generation must not be passed in.
func (e *Engine) Node(id node.ID) *node.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.Node(id)
}

// Stats describes the engine state.
type Stats struct {
	Nodes      int    // unique table entries, terminal included
	SumCache   int    // memoized sums
	Generation uint64 // incremented by every Reset
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{Nodes: e.table.Len(), SumCache: e.alg.CacheLen(), Generation: e.gen}
}

// ClearCaches drops all memoized results. Diagrams stay valid.
func (e *Engine) ClearCaches() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alg.ClearCaches()
}

// Reset reclaims every node not reachable from keep and returns fresh handles
// for the kept diagrams, in order. Every other diagram of this engine, and the
// arguments themselves, become invalid: using them panics.
func (e *Engine) Reset(keep ...*TDD) []*TDD {
	e.mu.Lock()
	defer e.mu.Unlock()

	roots := make([]node.ID, len(keep))
	for i, t := range keep {
		e.own(t)
		roots[i] = t.edge.Node
	}
	before := e.table.Len()
	remapped := e.table.Compact(roots)
	e.alg.ClearCaches()
	e.gen++
	e.metrics.Resets.Inc()

	out := make([]*TDD, len(keep))
	for i, t := range keep {
		c := *t
		c.edge = algebra.Edge{Node: remapped[i], Weight: t.edge.Weight}
		c.gen = e.gen
		out[i] = &c
	}
	e.log.Info("unique table reset",
		slog.Int("kept_roots", len(keep)),
		slog.Int("nodes_before", before),
		slog.Int("nodes_after", e.table.Len()),
		slog.Uint64("generation", e.gen))
	return out
}

// own panics unless t is a current diagram of e.
func (e *Engine) own(t *TDD) {
	if t.eng != e {
		panic("tdd: diagram used with a foreign engine")
	}
	if t.gen != e.gen {
		panic(fmt.Sprintf("tdd: diagram of generation %d used after reset (now %d)", t.gen, e.gen))
	}
}

func (e *Engine) parallelConfig() parallel.Config {
	return e.cfg.Parallel
}

func (e *Engine) observe(op string) func() {
	start := time.Now()
	return func() { e.metrics.Since(op, start) }
}
