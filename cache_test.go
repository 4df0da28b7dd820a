package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cache "github.com/sidifa/querycache"
	"github.com/sidifa/querycache/engine"
	"github.com/sidifa/querycache/eviction"
	"github.com/sidifa/querycache/freshness"
	"github.com/sidifa/querycache/refresh"
	"github.com/sidifa/querycache/types"
)

//
// ================= FIXTURES =================
//

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

type page struct {
	Items []string
	Total int
}

type fixture struct {
	cache   *cache.QueryCache
	clock   *freshness.ManualClock
	metrics *types.CounterMetrics
	logs    *test.Hook
}

func newFixture(t *testing.T, cfg cache.Config) *fixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	log := logrus.NewEntry(logger)

	clock := freshness.NewManualClock(t0)
	metrics := &types.CounterMetrics{}
	eng := engine.NewQueryEngine(clock, refresh.NewWorker(1, 16, log), metrics, log)

	if cfg.Shards == 0 {
		cfg.Shards = 4
	}
	c, err := cache.New(cfg, eng)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return &fixture{cache: c, clock: clock, metrics: metrics, logs: hook}
}

// countingFetcher returns values in order and counts calls.
func countingFetcher[T any](calls *atomic.Int32, values ...T) types.Fetcher[T] {
	return func(context.Context) (T, error) {
		n := calls.Add(1)
		i := int(n) - 1
		if i >= len(values) {
			i = len(values) - 1
		}
		return values[i], nil
	}
}

//
// ================= STORE =================
//

func TestSetAndGet(t *testing.T) {
	f := newFixture(t, cache.Config{})

	f.cache.Set("v1:posyandu:list:1:10", page{Total: 3}, 30*time.Second)

	v, ok := f.cache.Get("v1:posyandu:list:1:10")
	require.True(t, ok)
	assert.Equal(t, page{Total: 3}, v)

	typed, ok := cache.GetAs[page](f.cache, "v1:posyandu:list:1:10")
	require.True(t, ok)
	assert.Equal(t, 3, typed.Total)

	_, ok = cache.GetAs[string](f.cache, "v1:posyandu:list:1:10")
	assert.False(t, ok, "value of another type")
}

func TestGetMissingKey(t *testing.T) {
	f := newFixture(t, cache.Config{})

	v, ok := f.cache.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.False(t, f.cache.IsFresh("missing", time.Minute))
}

func TestSetReplacesWholeEntry(t *testing.T) {
	f := newFixture(t, cache.Config{})

	f.cache.Set("k", "first", time.Second)
	f.clock.Advance(5 * time.Second)
	f.cache.Set("k", "second", time.Minute)

	ent, ok := f.cache.Peek("k")
	require.True(t, ok)
	assert.Equal(t, "second", ent.Value)
	assert.Equal(t, t0.Add(5*time.Second), ent.StoredAt)
	assert.Equal(t, time.Minute, ent.Window)
	assert.Equal(t, 1, f.cache.Len())
}

func TestFreshnessWindow(t *testing.T) {
	f := newFixture(t, cache.Config{})
	const window = 30 * time.Second

	f.cache.Set("k", 1, window)

	f.clock.Set(t0.Add(window - time.Nanosecond))
	assert.True(t, f.cache.IsFresh("k", window))

	f.clock.Set(t0.Add(window))
	assert.False(t, f.cache.IsFresh("k", window))

	// The window supplied at check time wins over the stored one.
	assert.True(t, f.cache.IsFresh("k", time.Minute))

	// Zero falls back to the stored window.
	f.clock.Set(t0.Add(10 * time.Second))
	assert.True(t, f.cache.IsFresh("k", 0))
}

func TestRemoveIsIdempotent(t *testing.T) {
	f := newFixture(t, cache.Config{})

	f.cache.Set("k", 1, time.Minute)
	f.cache.Remove("k")
	f.cache.Remove("k")
	f.cache.Remove("never-set")

	_, ok := f.cache.Get("k")
	assert.False(t, ok)
	assert.EqualValues(t, 1, f.metrics.Snapshot().Invalidated)
}

func TestRemoveByPrefixScoping(t *testing.T) {
	f := newFixture(t, cache.Config{})

	for _, k := range []string{"resourceA:list:1", "resourceA:list:2", "resourceA:detail:9", "resourceB:list:1"} {
		f.cache.Set(k, k, time.Minute)
	}

	assert.Equal(t, 3, f.cache.RemoveByPrefix("resourceA"))
	for _, k := range []string{"resourceA:list:1", "resourceA:list:2", "resourceA:detail:9"} {
		_, ok := f.cache.Get(k)
		assert.False(t, ok, k)
	}
	v, ok := f.cache.Get("resourceB:list:1")
	assert.True(t, ok)
	assert.Equal(t, "resourceB:list:1", v)

	assert.Equal(t, 0, f.cache.RemoveByPrefix("resourceA"))
	assert.Equal(t, 0, f.cache.RemoveByPrefix("nothing-here"))
	assert.Equal(t, []string{"resourceB:list:1"}, f.cache.Keys(""))
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	f := newFixture(t, cache.Config{Shards: 1, Capacity: 2, Eviction: eviction.LRU})

	f.cache.Set("a", 1, time.Minute)
	f.cache.Set("b", 2, time.Minute)
	f.cache.Get("a")
	f.cache.Set("c", 3, time.Minute)

	assert.Equal(t, []string{"a", "c"}, f.cache.Keys(""))
	assert.EqualValues(t, 1, f.metrics.Snapshot().Evictions)

	// Replacing an existing key never evicts.
	f.cache.Set("a", 10, time.Minute)
	assert.Equal(t, 2, f.cache.Len())
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := cache.New(cache.Config{Shards: 0}, nil)
	assert.Error(t, err)

	_, err = cache.New(cache.Config{Shards: 2, Capacity: -1}, nil)
	assert.Error(t, err)

	_, err = cache.New(cache.Config{Shards: 2, Capacity: 10, Eviction: "LFU"}, nil)
	assert.Error(t, err)
}

//
// ================= FETCH ORCHESTRATION =================
//

func TestFetchQueryHitAvoidsRefetch(t *testing.T) {
	f := newFixture(t, cache.Config{})
	ctx := context.Background()

	var calls atomic.Int32
	fetch := countingFetcher(&calls, page{Total: 1})

	for i := 0; i < 2; i++ {
		v, err := cache.FetchQuery(ctx, f.cache, "k", fetch, 30*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 1, v.Total)
	}
	assert.EqualValues(t, 1, calls.Load())
	assert.EqualValues(t, 1, f.metrics.Snapshot().Hits)
}

func TestFetchQueryStaleRefetches(t *testing.T) {
	f := newFixture(t, cache.Config{})
	ctx := context.Background()

	var calls atomic.Int32
	fetch := countingFetcher(&calls, page{Total: 1}, page{Total: 2})

	_, err := cache.FetchQuery(ctx, f.cache, "k", fetch, 30*time.Second)
	require.NoError(t, err)

	f.clock.Advance(30 * time.Second)
	v, err := cache.FetchQuery(ctx, f.cache, "k", fetch, 30*time.Second)
	require.NoError(t, err)

	assert.Equal(t, 2, v.Total)
	assert.EqualValues(t, 2, calls.Load())
	stored, _ := cache.GetAs[page](f.cache, "k")
	assert.Equal(t, 2, stored.Total)
}

func TestFetchQueryPropagatesErrors(t *testing.T) {
	f := newFixture(t, cache.Config{})
	boom := errors.New("upstream down")

	_, err := cache.FetchQuery(context.Background(), f.cache, "k", func(context.Context) (page, error) {
		return page{}, boom
	}, time.Minute)

	assert.ErrorIs(t, err, boom)
	_, ok := f.cache.Get("k")
	assert.False(t, ok, "failed fetch must not be cached")
}

// A posts list set at t=0 is fresh at 10s, stale at 35s, and a refetch replaces the value.
func TestPostsListScenario(t *testing.T) {
	f := newFixture(t, cache.Config{})
	const key = "posts:list:1:10"

	f.cache.Set(key, page{Items: []string{"a"}, Total: 42}, 30*time.Second)

	f.clock.Set(t0.Add(10 * time.Second))
	assert.True(t, f.cache.IsFresh(key, 30*time.Second))

	f.clock.Set(t0.Add(35 * time.Second))
	assert.False(t, f.cache.IsFresh(key, 30*time.Second))

	_, err := cache.FetchQuery(context.Background(), f.cache, key, func(context.Context) (page, error) {
		return page{Items: []string{"a", "b"}, Total: 43}, nil
	}, 30*time.Second)
	require.NoError(t, err)

	got, ok := cache.GetAs[page](f.cache, key)
	require.True(t, ok)
	assert.Equal(t, 43, got.Total)
}

func TestFetchQueryDeduplicatesConcurrentCalls(t *testing.T) {
	f := newFixture(t, cache.Config{})
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := cache.FetchQuery(ctx, f.cache, "k", fetch, time.Minute)
			assert.NoError(t, err)
			assert.Equal(t, 7, v)
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
}

func TestCallerCancellationDoesNotAbortSharedFetch(t *testing.T) {
	f := newFixture(t, cache.Config{})

	release := make(chan struct{})
	fetch := func(ctx context.Context) (int, error) {
		<-release
		return 5, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.FetchQuery(ctx, f.cache, "k", fetch, time.Minute)
		done <- err
	}()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		v, ok := f.cache.Get("k")
		return ok && v == 5
	}, time.Second, time.Millisecond)
}

func TestInvalidationDuringFetchIsNotOverwritten(t *testing.T) {
	f := newFixture(t, cache.Config{})

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		close(started)
		<-release
		return "before-mutation", nil
	}

	done := make(chan string, 1)
	go func() {
		v, err := cache.FetchQuery(context.Background(), f.cache, "v1:ibk:list:1", fetch, time.Minute)
		assert.NoError(t, err)
		done <- v
	}()

	<-started
	f.cache.RemoveByPrefix("v1:ibk")
	close(release)

	assert.Equal(t, "before-mutation", <-done, "the caller still gets its result")
	_, ok := f.cache.Get("v1:ibk:list:1")
	assert.False(t, ok, "the outdated result must not be cached")
}

func TestPrefixInvalidationDetachesFlightStartedAfterRemove(t *testing.T) {
	f := newFixture(t, cache.Config{})
	const key = "v1:ibk:list:1"
	ctx := context.Background()

	fetchFrom := func(value string, started, release chan struct{}) types.Fetcher[string] {
		return func(context.Context) (string, error) {
			close(started)
			<-release
			return value, nil
		}
	}

	// Flight A runs, then the key is removed while it is still in flight.
	startedA, releaseA := make(chan struct{}), make(chan struct{})
	doneA := make(chan struct{})
	go func() {
		defer close(doneA)
		_, err := cache.FetchQuery(ctx, f.cache, key, fetchFrom("A-old", startedA, releaseA), time.Minute)
		assert.NoError(t, err)
	}()
	<-startedA
	f.cache.Remove(key)

	// Flight B starts after the Remove and keeps running past A.
	startedB, releaseB := make(chan struct{}), make(chan struct{})
	doneB := make(chan struct{})
	go func() {
		defer close(doneB)
		_, err := cache.FetchQuery(ctx, f.cache, key, fetchFrom("B-old", startedB, releaseB), time.Minute)
		assert.NoError(t, err)
	}()
	<-startedB

	close(releaseA)
	<-doneA
	assert.Equal(t, 1, f.cache.Stats().InFlight, "flight B is still tracked after A ends")

	// A write lands while B is in flight: the next reader must go to the network.
	f.cache.RemoveByPrefix("v1:ibk")
	v, err := cache.FetchQuery(ctx, f.cache, key, func(context.Context) (string, error) {
		return "C-fresh", nil
	}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "C-fresh", v)

	close(releaseB)
	<-doneB

	cached, ok := f.cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "C-fresh", cached, "flight B started before the invalidation and must not overwrite")
}

func TestUnrelatedInvalidationDoesNotDiscardFetch(t *testing.T) {
	f := newFixture(t, cache.Config{})

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		close(started)
		<-release
		return "jobs", nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := cache.FetchQuery(context.Background(), f.cache, "v1:lowongan:list:1", fetch, time.Minute)
		assert.NoError(t, err)
	}()

	<-started
	f.cache.RemoveByPrefix("v1:ibk")
	close(release)
	<-done

	v, ok := f.cache.Get("v1:lowongan:list:1")
	assert.True(t, ok)
	assert.Equal(t, "jobs", v)
}

//
// ================= STALE-WHILE-REVALIDATE =================
//

func TestQueryStatuses(t *testing.T) {
	f := newFixture(t, cache.Config{})
	ctx := context.Background()

	var calls atomic.Int32
	fetch := countingFetcher(&calls, "v1", "v2")

	res, err := cache.Query(ctx, f.cache, "k", fetch, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, cache.StatusMiss, res.Status)
	assert.Equal(t, "v1", res.Value)

	res, err = cache.Query(ctx, f.cache, "k", fetch, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, cache.StatusHit, res.Status)

	f.clock.Advance(time.Minute)
	res, err = cache.Query(ctx, f.cache, "k", fetch, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, cache.StatusStale, res.Status)
	assert.Equal(t, "v1", res.Value, "stale value is served immediately")
	assert.Equal(t, t0, res.StoredAt)

	f.cache.Close()
	v, _ := f.cache.Get("k")
	assert.Equal(t, "v2", v, "background revalidation replaced the value")
	assert.EqualValues(t, 2, calls.Load())
	assert.EqualValues(t, 1, f.metrics.Snapshot().Refreshes)
}

func TestQueryStaleRefreshFailureKeepsValue(t *testing.T) {
	f := newFixture(t, cache.Config{})
	ctx := context.Background()

	f.cache.Set("k", "old", time.Second)
	f.clock.Advance(time.Minute)

	res, err := cache.Query(ctx, f.cache, "k", func(context.Context) (string, error) {
		return "", errors.New("503 service unavailable")
	}, time.Second)
	require.NoError(t, err, "refetch errors are suppressed while a stale value exists")
	assert.Equal(t, "old", res.Value)

	f.cache.Close()
	v, _ := f.cache.Get("k")
	assert.Equal(t, "old", v)
	require.NotNil(t, f.logs.LastEntry())
	assert.Equal(t, logrus.WarnLevel, f.logs.LastEntry().Level)
}

func TestQueryMissSurfacesError(t *testing.T) {
	f := newFixture(t, cache.Config{})
	boom := errors.New("network unreachable")

	res, err := cache.Query(context.Background(), f.cache, "k", func(context.Context) (int, error) {
		return 0, boom
	}, time.Second)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, cache.StatusMiss, res.Status)
}

func TestStats(t *testing.T) {
	f := newFixture(t, cache.Config{Shards: 2, Capacity: 10})

	f.cache.Set("a", 1, time.Minute)
	_, _ = cache.FetchQuery(context.Background(), f.cache, "a", func(context.Context) (int, error) { return 1, nil }, time.Minute)

	st := f.cache.Stats()
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, 2, st.Shards)
	assert.Equal(t, 10, st.Capacity)
	require.NotNil(t, st.Metrics)
	assert.EqualValues(t, 1, st.Metrics.Hits)
}
