package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/sidifa/querycache/types"
)

// Status says where a query result came from.
type Status string

const (
	// StatusHit is a fresh cached value; nothing was fetched.
	StatusHit Status = "HIT"

	// StatusStale is a cached value past its window; a revalidation was queued.
	StatusStale Status = "STALE"

	// StatusMiss means nothing was cached and the value was fetched now.
	StatusMiss Status = "MISS"
)

// Result is a query value together with its provenance.
type Result[T any] struct {
	Value    T
	Status   Status
	StoredAt time.Time
}

/*
FetchQuery returns the value for key, fetching it only when needed.

 1. A fresh entry of type T is returned as is; fetch is not called.
 2. Otherwise fetch runs and a successful result is stored with window.
    A failed fetch leaves the cache untouched and its error is returned unchanged.

Concurrent calls for the same key share one fetch. The shared fetch does not
observe any single caller's cancellation; a caller whose ctx ends stops waiting
and gets ctx.Err(), while the fetch completes and fills the cache for the others.
*/
func FetchQuery[T any](
	ctx context.Context,
	c *QueryCache,
	key string,
	fetch types.Fetcher[T],
	window time.Duration,
) (T, error) {
	if ent, ok := c.lookup(key); ok {
		if v, typed := castValue[T](ent.Value); typed && c.engine.IsFresh(ent, window) {
			c.engine.Metrics.Hit()
			return v, nil
		}
		c.engine.Metrics.Stale()
	} else {
		c.engine.Metrics.Miss()
	}
	return fetchShared(ctx, c, key, fetch, window)
}

/*
Query is the stale-while-revalidate read used by every list and detail view:

  - fresh value: returned with StatusHit
  - stale value: returned at once with StatusStale, and a background refetch is
    queued; if that refetch fails the error is logged and the stale value stays
  - no value: fetched synchronously, StatusMiss; errors are returned

A stale value of another type than T counts as no value.
*/
func Query[T any](
	ctx context.Context,
	c *QueryCache,
	key string,
	fetch types.Fetcher[T],
	window time.Duration,
) (Result[T], error) {
	if ent, ok := c.lookup(key); ok {
		if v, typed := castValue[T](ent.Value); typed {
			if c.engine.IsFresh(ent, window) {
				c.engine.Metrics.Hit()
				return Result[T]{Value: v, Status: StatusHit, StoredAt: ent.StoredAt}, nil
			}

			c.engine.Metrics.Stale()
			c.engine.Revalidate(key, func(jobCtx context.Context) {
				if _, err := fetchShared(jobCtx, c, key, fetch, window); err != nil {
					c.engine.Log.WithField("key", key).WithError(err).Warn("background revalidation failed, keeping stale value")
				}
			})
			return Result[T]{Value: v, Status: StatusStale, StoredAt: ent.StoredAt}, nil
		}
	}

	c.engine.Metrics.Miss()
	v, err := fetchShared(ctx, c, key, fetch, window)
	if err != nil {
		return Result[T]{Status: StatusMiss}, err
	}
	return Result[T]{Value: v, Status: StatusMiss, StoredAt: c.engine.Now()}, nil
}

// fetchShared runs fetch through the single-flight group and stores the result.
func fetchShared[T any](
	ctx context.Context,
	c *QueryCache,
	key string,
	fetch types.Fetcher[T],
	window time.Duration,
) (T, error) {
	var zero T

	seq := c.invalidations.current()
	detached := context.WithoutCancel(ctx)

	ch := c.sf.DoChan(key, func() (any, error) {
		// A forgotten flight may still be running when a newer one for the
		// same key starts; each flight only clears its own marker.
		flight := new(flightToken)
		c.inflight.Store(key, flight)
		defer c.inflight.CompareAndDelete(key, flight)

		v, err := fetch(detached)
		if err != nil {
			return nil, err
		}
		c.storeIfCurrent(key, v, window, seq)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := castValue[T](res.Val)
		if !ok {
			return zero, fmt.Errorf("key %q holds %T: %w", key, res.Val, ErrTypeMismatch)
		}
		return v, nil
	}
}

// flightToken identifies one shared fetch in QueryCache.inflight.
type flightToken struct{ _ byte }

// castValue asserts v to T. A nil v is the zero T.
func castValue[T any](v any) (T, bool) {
	if v == nil {
		var zero T
		return zero, true
	}
	t, ok := v.(T)
	return t, ok
}
