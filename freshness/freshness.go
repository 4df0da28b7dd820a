// This file decides whether a cached entry is still fresh.

package freshness

import (
	"time"

	"github.com/sidifa/querycache/types"
)

/*
IsFresh reports whether ent may be served without refetching.

An entry stored at t0 is fresh for any check at t0+d with d < window and stale
from d >= window on. When window is zero the window recorded on the entry is used,
so callers that do not care can pass 0.

A nil entry or a non-positive effective window is never fresh.
*/
func IsFresh(ent *types.Entry, now time.Time, window time.Duration) bool {
	if ent == nil {
		return false
	}
	if window == 0 {
		window = ent.Window
	}
	if window <= 0 {
		return false
	}
	return ent.Age(now) < window
}

// Remaining returns how much of the window is left, or 0 when the entry is stale.
func Remaining(ent *types.Entry, now time.Time, window time.Duration) time.Duration {
	if !IsFresh(ent, now, window) {
		return 0
	}
	if window == 0 {
		window = ent.Window
	}
	return window - ent.Age(now)
}
