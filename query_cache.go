package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/sidifa/querycache/api"
	"github.com/sidifa/querycache/engine"
	"github.com/sidifa/querycache/eviction"
	"github.com/sidifa/querycache/shard"
	"github.com/sidifa/querycache/types"
)

var _ api.Cache = (*QueryCache)(nil)

// Config sizes a QueryCache.
type Config struct {
	// Shards is the number of independent shards. Must be positive.
	Shards int

	// Capacity bounds the total number of entries, split evenly across shards.
	// Zero means unbounded.
	Capacity int

	// Eviction picks the victim when a bounded shard is full.
	Eviction eviction.PolicyType
}

/*
QueryCache is the query cache behind every SI-DIFA read.

It connects:
- shards (storage + per-shard eviction)
- the engine (clock, freshness, background revalidation, metrics)
- the single-flight group that merges concurrent fetches of one key
- the invalidation log that stops in-flight fetches from resurrecting
  invalidated data

A QueryCache is constructed explicitly and passed to whoever needs it.
*/
type QueryCache struct {
	shards   []*shard.Shard
	selector shard.Selector
	engine   *engine.QueryEngine
	capacity int

	sf singleflight.Group

	// inflight maps each key with a shared fetch running to the token of its
	// newest flight, so a prefix invalidation can detach it from the
	// single-flight group.
	inflight sync.Map

	invalidations invalidationLog
}

// Stats describes the cache at one point in time.
type Stats struct {
	Entries  int                    `json:"entries"`
	Shards   int                    `json:"shards"`
	Capacity int                    `json:"capacity"`
	InFlight int                    `json:"in_flight"`
	Pending  int                    `json:"pending_refreshes"`
	Metrics  *types.MetricsSnapshot `json:"metrics,omitempty"`
}

// New builds an empty cache over eng. cfg.Shards must be positive.
func New(cfg Config, eng *engine.QueryEngine) (*QueryCache, error) {
	if cfg.Shards <= 0 {
		return nil, fmt.Errorf("shards must be positive, got %d", cfg.Shards)
	}
	if cfg.Capacity < 0 {
		return nil, fmt.Errorf("capacity must not be negative, got %d", cfg.Capacity)
	}
	if cfg.Eviction == "" {
		cfg.Eviction = eviction.LRU
	}
	if eng == nil {
		eng = engine.NewQueryEngine(nil, nil, nil, nil)
	}

	// Round up so the shards together hold at least Capacity entries.
	perShard := 0
	if cfg.Capacity > 0 {
		perShard = (cfg.Capacity + cfg.Shards - 1) / cfg.Shards
	}

	shards := make([]*shard.Shard, cfg.Shards)
	for i := range shards {
		var ev eviction.Policy
		if perShard > 0 {
			p, err := eviction.NewEvictionPolicy(cfg.Eviction)
			if err != nil {
				return nil, err
			}
			ev = p
		}
		shards[i] = shard.NewShard(ev, perShard)
	}

	return &QueryCache{
		shards:   shards,
		selector: shard.HashSelector{},
		engine:   eng,
		capacity: cfg.Capacity,
	}, nil
}

// Engine exposes the policy layer, mostly for its clock and logger.
func (c *QueryCache) Engine() *engine.QueryEngine {
	return c.engine
}

func (c *QueryCache) shardFor(key string) *shard.Shard {
	return c.selector.Select(key, c.shards)
}

// lookup reads an entry and records the access for eviction.
func (c *QueryCache) lookup(key string) (*types.Entry, bool) {
	sh := c.shardFor(key)
	ent, ok := sh.Store.Get(key)
	if ok && sh.Eviction != nil {
		sh.Mu.Lock()
		sh.Eviction.OnGet(key)
		sh.Mu.Unlock()
	}
	return ent, ok
}

// Get returns the stored value regardless of freshness.
func (c *QueryCache) Get(key string) (any, bool) {
	ent, ok := c.lookup(key)
	if !ok {
		return nil, false
	}
	return ent.Value, true
}

// GetAs is Get with the value asserted to T. A value of another type reports false.
func GetAs[T any](c *QueryCache, key string) (T, bool) {
	v, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	return castValue[T](v)
}

// Peek returns a copy of the entry without touching eviction order.
func (c *QueryCache) Peek(key string) (types.Entry, bool) {
	ent, ok := c.shardFor(key).Store.Get(key)
	if !ok {
		return types.Entry{}, false
	}
	return *ent, true
}

// Set stores value under key, stamped with the engine clock, replacing any prior entry.
func (c *QueryCache) Set(key string, value any, window time.Duration) {
	sh := c.shardFor(key)

	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	c.put(sh, key, value, window)
}

// put writes under sh.Mu.
func (c *QueryCache) put(sh *shard.Shard, key string, value any, window time.Duration) {
	if _, exists := sh.Store.Get(key); !exists && sh.Full() {
		if victim := sh.Eviction.Evict(); victim != "" {
			sh.Store.Delete(victim)
			c.engine.Metrics.Eviction()
		}
	}

	sh.Store.Put(key, c.engine.NewEntry(key, value, window))
	if sh.Eviction != nil {
		sh.Eviction.OnPut(key)
	}
}

/*
storeIfCurrent writes a fetch result unless the key was invalidated after the
fetch started (seq is the invalidation sequence observed at that moment).
The check and the write happen under the shard lock, and invalidations delete
under the same lock after logging themselves, so a late result can never
overwrite an invalidation.
*/
func (c *QueryCache) storeIfCurrent(key string, value any, window time.Duration, seq uint64) bool {
	sh := c.shardFor(key)

	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	if c.invalidations.touchedSince(seq, key) {
		c.engine.Log.WithField("key", key).Debug("discarding fetch result invalidated in flight")
		return false
	}
	c.put(sh, key, value, window)
	return true
}

// IsFresh reports whether key holds an entry younger than window.
// A zero window falls back to the window the entry was stored with.
func (c *QueryCache) IsFresh(key string, window time.Duration) bool {
	ent, ok := c.shardFor(key).Store.Get(key)
	return ok && c.engine.IsFresh(ent, window)
}

// Remove deletes one key. Removing a missing key is a no-op.
func (c *QueryCache) Remove(key string) {
	c.invalidations.record(key, false)
	c.sf.Forget(key)

	sh := c.shardFor(key)
	sh.Mu.Lock()
	removed := sh.Store.Delete(key)
	if sh.Eviction != nil {
		sh.Eviction.Remove(key)
	}
	sh.Mu.Unlock()

	if removed {
		c.engine.Metrics.Invalidate(1)
	}
}

// RemoveByPrefix deletes every key starting with prefix and returns how many went.
// An empty prefix clears the cache.
func (c *QueryCache) RemoveByPrefix(prefix string) int {
	c.invalidations.record(prefix, true)
	c.inflight.Range(func(k, _ any) bool {
		if key := k.(string); strings.HasPrefix(key, prefix) {
			c.sf.Forget(key)
		}
		return true
	})

	total := 0
	for _, sh := range c.shards {
		sh.Mu.Lock()
		removed := sh.Store.DeletePrefix(prefix)
		if sh.Eviction != nil {
			for _, k := range removed {
				sh.Eviction.Remove(k)
			}
		}
		sh.Mu.Unlock()
		total += len(removed)
	}

	if total > 0 {
		c.engine.Metrics.Invalidate(total)
	}
	c.engine.Log.WithFields(logrus.Fields{"prefix": prefix, "removed": total}).Debug("invalidated prefix")
	return total
}

// Keys lists the cached keys starting with prefix, sorted.
func (c *QueryCache) Keys(prefix string) []string {
	var keys []string
	for _, sh := range c.shards {
		keys = append(keys, sh.Store.Keys(prefix)...)
	}
	sort.Strings(keys)
	return keys
}

// Len counts the stored entries, fresh or not.
func (c *QueryCache) Len() int {
	n := 0
	for _, sh := range c.shards {
		n += int(sh.Store.Size())
	}
	return n
}

// Stats snapshots the cache counters.
func (c *QueryCache) Stats() Stats {
	st := Stats{
		Entries:  c.Len(),
		Shards:   len(c.shards),
		Capacity: c.capacity,
	}
	c.inflight.Range(func(_, _ any) bool {
		st.InFlight++
		return true
	})
	if c.engine.Refresher != nil {
		st.Pending = c.engine.Refresher.Pending()
	}
	if m, ok := c.engine.Metrics.(types.Snapshotter); ok {
		snap := m.Snapshot()
		st.Metrics = &snap
	}
	return st
}

// Close waits for queued background revalidations. The cache stays readable.
func (c *QueryCache) Close() {
	c.engine.Close()
}
