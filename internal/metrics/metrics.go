// Package metrics exposes engine counters through Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tdd"

// Metrics groups the collectors of one engine.
type Metrics struct {
	TableNodes   prometheus.Gauge
	TableLookups *prometheus.CounterVec
	SumCache     *prometheus.CounterVec
	Resets       prometheus.Counter
	OpDuration   *prometheus.HistogramVec
}

// New registers a fresh set of collectors with reg. A nil reg uses a private
// registry, so several engines can coexist in one process.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		TableNodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "unique_table",
			Name:      "nodes",
			Help:      "Number of nodes in the unique table, terminal included",
		}),
		TableLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "unique_table",
			Name:      "lookups_total",
			Help:      "Unique table lookups by result",
		}, []string{"result"}),
		SumCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sum_cache",
			Name:      "lookups_total",
			Help:      "Sum memoization lookups by result",
		}, []string{"result"}),
		Resets: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Engine resets (unique table compactions)",
		}),
		OpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of facade operations",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}, []string{"op"}),
	}
}

func result(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// ObserveLookup records a unique-table lookup.
func (m *Metrics) ObserveLookup(hit bool) {
	m.TableLookups.WithLabelValues(result(hit)).Inc()
}

// ObserveNodes records the unique-table size.
func (m *Metrics) ObserveNodes(n int) {
	m.TableNodes.Set(float64(n))
}

// ObserveSumCache records a sum memoization lookup.
func (m *Metrics) ObserveSumCache(hit bool) {
	m.SumCache.WithLabelValues(result(hit)).Inc()
}

// Since records the time elapsed since start for op.
func (m *Metrics) Since(op string, start time.Time) {
	m.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
