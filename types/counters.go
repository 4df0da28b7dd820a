package types

import "sync/atomic"

// CounterMetrics counts every event. The gateway exposes its snapshot on /debug/cache.
type CounterMetrics struct {
	hits        atomic.Int64
	misses      atomic.Int64
	stale       atomic.Int64
	refreshes   atomic.Int64
	evictions   atomic.Int64
	invalidated atomic.Int64
}

// Snapshotter is a Metrics that can report its totals.
type Snapshotter interface {
	Snapshot() MetricsSnapshot
}

// MetricsSnapshot is a point-in-time copy of CounterMetrics.
type MetricsSnapshot struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Stale       int64 `json:"stale"`
	Refreshes   int64 `json:"refreshes"`
	Evictions   int64 `json:"evictions"`
	Invalidated int64 `json:"invalidated"`
}

func (m *CounterMetrics) Hit()             { m.hits.Add(1) }
func (m *CounterMetrics) Miss()            { m.misses.Add(1) }
func (m *CounterMetrics) Stale()           { m.stale.Add(1) }
func (m *CounterMetrics) Refresh()         { m.refreshes.Add(1) }
func (m *CounterMetrics) Eviction()        { m.evictions.Add(1) }
func (m *CounterMetrics) Invalidate(n int) { m.invalidated.Add(int64(n)) }

func (m *CounterMetrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Hits:        m.hits.Load(),
		Misses:      m.misses.Load(),
		Stale:       m.stale.Load(),
		Refreshes:   m.refreshes.Load(),
		Evictions:   m.evictions.Load(),
		Invalidated: m.invalidated.Load(),
	}
}
