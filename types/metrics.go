package types

// This file defines how the query cache reports what it is doing.

/*
Metrics is called by the cache for every event in an entry's lifecycle.
Implementations must be safe for concurrent use.
*/
type Metrics interface {

	// Hit is called when a fresh value is returned without fetching.
	Hit()

	// Miss is called when there is no value at all and the caller has to wait for a fetch.
	Miss()

	// Stale is called when a value exists but its freshness window has passed.
	Stale()

	// Refresh is called when a background revalidation is queued.
	Refresh()

	// Eviction is called when a key is dropped because its shard is full.
	Eviction()

	// Invalidate is called after Remove/RemoveByPrefix with the number of keys removed.
	Invalidate(n int)
}

// NoopMetrics ignores every event, so the cache never has to nil-check its Metrics.
type NoopMetrics struct{}

func (NoopMetrics) Hit()           {}
func (NoopMetrics) Miss()          {}
func (NoopMetrics) Stale()         {}
func (NoopMetrics) Refresh()       {}
func (NoopMetrics) Eviction()      {}
func (NoopMetrics) Invalidate(int) {}
