package shard

import (
	"sync"

	"github.com/sidifa/querycache/eviction"
)

/*
Shard is one independent slice of the query cache.

Each shard owns its store, its eviction bookkeeping and the mutex that
serialises writes. Reads go straight to the copy-on-write store.
*/
type Shard struct {
	Store Store

	// Eviction is nil when the cache is unbounded.
	Eviction eviction.Policy

	// Limit is the maximum number of entries; 0 means unbounded.
	Limit int

	// Mu guards writes to Store and every call into Eviction.
	Mu sync.Mutex
}

func NewShard(ev eviction.Policy, limit int) *Shard {
	if limit <= 0 {
		ev = nil
		limit = 0
	}
	return &Shard{
		Store:    NewCOWStore(),
		Eviction: ev,
		Limit:    limit,
	}
}

// Full reports whether inserting a new key would exceed Limit. Callers hold Mu.
func (s *Shard) Full() bool {
	return s.Limit > 0 && s.Store.Size() >= int64(s.Limit)
}
