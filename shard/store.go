package shard

import (
	"strings"
	"sync/atomic"

	"github.com/sidifa/querycache/types"
)

/*
This file defines how entries are kept inside a shard.

Reads (Get, IsFresh) are far more frequent than writes (a fetch result, an
invalidation), so the store is copy-on-write:
- Readers load an immutable map snapshot without locking
- Writers build a new map and swap it in atomically

Entries themselves are never modified after Put, so a reader holding an old
snapshot still sees a complete entry.
*/

// Store is the storage contract of a shard. Writes must be serialised by the caller.
type Store interface {
	Get(string) (*types.Entry, bool)
	Put(string, *types.Entry)

	// Delete removes a key and reports whether it was present.
	Delete(string) bool

	// DeletePrefix removes every key starting with prefix and returns them.
	DeletePrefix(string) []string

	// Keys returns the keys starting with prefix.
	Keys(string) []string

	Size() int64
}

type cowStore struct {
	data atomic.Pointer[map[string]*types.Entry]
	size atomic.Int64
}

func NewCOWStore() Store {
	s := &cowStore{}
	m := make(map[string]*types.Entry)
	s.data.Store(&m)
	return s
}

func (s *cowStore) snapshot() map[string]*types.Entry {
	return *s.data.Load()
}

func (s *cowStore) publish(m map[string]*types.Entry) {
	s.data.Store(&m)
	s.size.Store(int64(len(m)))
}

func (s *cowStore) Get(key string) (*types.Entry, bool) {
	ent, ok := s.snapshot()[key]
	return ent, ok
}

func (s *cowStore) Put(key string, ent *types.Entry) {
	old := s.snapshot()
	n := make(map[string]*types.Entry, len(old)+1)
	for k, v := range old {
		n[k] = v
	}
	n[key] = ent
	s.publish(n)
}

func (s *cowStore) Delete(key string) bool {
	old := s.snapshot()
	if _, ok := old[key]; !ok {
		// Nothing to do; keep the current snapshot.
		return false
	}
	n := make(map[string]*types.Entry, len(old))
	for k, v := range old {
		if k != key {
			n[k] = v
		}
	}
	s.publish(n)
	return true
}

func (s *cowStore) DeletePrefix(prefix string) []string {
	old := s.snapshot()

	var removed []string
	n := make(map[string]*types.Entry, len(old))
	for k, v := range old {
		if strings.HasPrefix(k, prefix) {
			removed = append(removed, k)
			continue
		}
		n[k] = v
	}
	if len(removed) == 0 {
		return nil
	}
	s.publish(n)
	return removed
}

func (s *cowStore) Keys(prefix string) []string {
	var keys []string
	for k := range s.snapshot() {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *cowStore) Size() int64 {
	return s.size.Load()
}
