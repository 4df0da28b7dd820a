// Package metrics exports query cache events to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sidifa/querycache/types"
)

const namespace = "sidifa_cache"

// Prometheus implements types.Metrics. It also keeps plain totals so the
// debug endpoint can report them without scraping.
type Prometheus struct {
	totals types.CounterMetrics

	lookups     *prometheus.CounterVec
	refreshes   prometheus.Counter
	evictions   prometheus.Counter
	invalidated prometheus.Counter
}

var _ types.Metrics = (*Prometheus)(nil)

// NewPrometheus creates and registers the cache metrics with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lookups_total",
		Help:      "Cache lookups by result (hit, stale, miss)",
	}, []string{"result"})

	refreshes := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refreshes_total",
		Help:      "Background revalidations queued",
	})

	evictions := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evictions_total",
		Help:      "Entries evicted because their shard was full",
	})

	invalidated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invalidated_total",
		Help:      "Entries removed by Remove or RemoveByPrefix",
	})

	reg.MustRegister(lookups, refreshes, evictions, invalidated)

	return &Prometheus{
		lookups:     lookups,
		refreshes:   refreshes,
		evictions:   evictions,
		invalidated: invalidated,
	}
}

func (m *Prometheus) Hit() {
	m.totals.Hit()
	m.lookups.WithLabelValues("hit").Inc()
}

func (m *Prometheus) Miss() {
	m.totals.Miss()
	m.lookups.WithLabelValues("miss").Inc()
}

func (m *Prometheus) Stale() {
	m.totals.Stale()
	m.lookups.WithLabelValues("stale").Inc()
}

func (m *Prometheus) Refresh() {
	m.totals.Refresh()
	m.refreshes.Inc()
}

func (m *Prometheus) Eviction() {
	m.totals.Eviction()
	m.evictions.Inc()
}

func (m *Prometheus) Invalidate(n int) {
	m.totals.Invalidate(n)
	m.invalidated.Add(float64(n))
}

func (m *Prometheus) Snapshot() types.MetricsSnapshot {
	return m.totals.Snapshot()
}
