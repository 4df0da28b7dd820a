package types

import "time"

// Entry is one cached query result.
// Entries are published whole and never mutated afterwards; a refetch publishes a new Entry.
type Entry struct {
	Key      string
	Value    any
	StoredAt time.Time

	// Window is the freshness window the value was stored with.
	Window time.Duration
}

// Age returns how long ago the entry was stored, relative to now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}
