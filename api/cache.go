package api

import (
	"time"

	"github.com/sidifa/querycache/types"
)

/*
Cache is the public contract of the query cache store.

Typed reads and the fetch orchestration are generic functions in the root
package (GetAs, FetchQuery, Query); Go methods cannot carry type parameters,
so this interface covers the untyped store underneath them.
*/
type Cache interface {

	/*
		Get returns the value stored under key, fresh or not.
		The second result is false when the key was never set, or was removed.
	*/
	Get(key string) (any, bool)

	/*
		Set stores value under key with the current time.

		BEHAVIOR:
		---------
		- Replaces any previous entry for key as a whole; readers see either
		  the old entry or the new one, never a mix
		- Records window on the entry as its default freshness window
		- May evict another key when the cache is bounded and the shard is full
	*/
	Set(key string, value any, window time.Duration)

	/*
		IsFresh reports whether key holds an entry with now - storedAt < window.

		The window is the one supplied now, not the one used at Set time, so two
		call sites can read one key with different freshness needs. A zero
		window falls back to the recorded one.
	*/
	IsFresh(key string, window time.Duration) bool

	/*
		Peek returns a copy of the entry for diagnostics. It does not count as a
		read for eviction purposes.
	*/
	Peek(key string) (types.Entry, bool)

	/*
		Remove deletes one key. It is idempotent: removing a missing key is a no-op.
		Used after editing a single record whose detail key is known.
	*/
	Remove(key string)

	/*
		RemoveByPrefix deletes every key that starts with prefix and returns the
		number removed. Used after create/update/delete on a resource collection,
		so the next read of any page goes to the network.

		Like Remove it is idempotent, and a fetch already in flight for a
		matching key will not write its (now outdated) result back.
	*/
	RemoveByPrefix(prefix string) int

	// Keys lists the cached keys under prefix.
	Keys(prefix string) []string

	// Len returns the number of cached entries.
	Len() int

	/*
		Close waits for queued background revalidations to finish.
		Call it on shutdown.
	*/
	Close()
}
