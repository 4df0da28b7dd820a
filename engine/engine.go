package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sidifa/querycache/freshness"
	"github.com/sidifa/querycache/refresh"
	"github.com/sidifa/querycache/types"
)

/*
QueryEngine is the policy layer of the query cache.

It decides:
- What "now" is
- Whether an entry is still fresh
- How stale entries get revalidated
- Where metrics and logs go

It does NOT store entries, pick shards, lock, or choose what to evict.
*/
type QueryEngine struct {

	// Clock is consulted for every timestamp and freshness check.
	Clock freshness.Clock

	// Refresher runs background revalidations. When nil each revalidation gets
	// its own goroutine.
	Refresher *refresh.Worker

	Metrics types.Metrics

	Log *logrus.Entry
}

/*
NewQueryEngine fills in defaults for anything left nil: the system clock,
NoopMetrics and the standard logrus logger.
*/
func NewQueryEngine(
	clock freshness.Clock,
	refresher *refresh.Worker,
	metrics types.Metrics,
	log *logrus.Entry,
) *QueryEngine {
	if clock == nil {
		clock = freshness.SystemClock{}
	}
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &QueryEngine{
		Clock:     clock,
		Refresher: refresher,
		Metrics:   metrics,
		Log:       log,
	}
}

func (e *QueryEngine) Now() time.Time {
	return e.Clock.Now()
}

// NewEntry stamps a value with the current time and its freshness window.
func (e *QueryEngine) NewEntry(key string, value any, window time.Duration) *types.Entry {
	return &types.Entry{
		Key:      key,
		Value:    value,
		StoredAt: e.Now(),
		Window:   window,
	}
}

// IsFresh checks ent against window at the engine's current time.
func (e *QueryEngine) IsFresh(ent *types.Entry, window time.Duration) bool {
	return freshness.IsFresh(ent, e.Now(), window)
}

/*
Revalidate schedules job to refresh key in the background and reports whether
it was scheduled. It never blocks the caller. A job refused by the worker (queue
full, key already queued, worker closed) is simply not run.
*/
func (e *QueryEngine) Revalidate(key string, job refresh.Job) bool {
	if e.Refresher == nil {
		e.Metrics.Refresh()
		go job(context.Background())
		return true
	}
	if !e.Refresher.Submit(key, job) {
		return false
	}
	e.Metrics.Refresh()
	return true
}

// Close waits for queued revalidations to finish.
func (e *QueryEngine) Close() {
	if e.Refresher != nil {
		e.Refresher.Close()
	}
}
