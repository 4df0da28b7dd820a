package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	cache "github.com/sidifa/querycache"
	"github.com/sidifa/querycache/engine"
	"github.com/sidifa/querycache/eviction"
	"github.com/sidifa/querycache/refresh"
)

func newBenchmarkCache(b *testing.B) *cache.QueryCache {
	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)

	eng := engine.NewQueryEngine(nil, refresh.NewWorker(2, 1024, log), nil, log)
	c, err := cache.New(cache.Config{Shards: 8, Capacity: 100000, Eviction: eviction.LRU}, eng)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(c.Close)
	return c
}

func fetchValue(v int) func(context.Context) (int, error) {
	return func(context.Context) (int, error) { return v, nil }
}

//
// ================= SINGLE THREAD BENCH =================
//

func BenchmarkFetchQueryHit(b *testing.B) {
	ctx := context.Background()
	c := newBenchmarkCache(b)
	c.Set("key", 1, time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.FetchQuery(ctx, c, "key", fetchValue(1), time.Hour)
	}
}

func BenchmarkFetchQueryMiss(b *testing.B) {
	ctx := context.Background()
	c := newBenchmarkCache(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.FetchQuery(ctx, c, fmt.Sprintf("miss-%d", i), fetchValue(i), time.Hour)
	}
}

func BenchmarkBuildKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		cache.BuildKey("v1:ibk", "list", i%50, 10, "search term", nil)
	}
}

//
// ================= PARALLEL BENCH =================
//

func BenchmarkQueryParallel(b *testing.B) {
	ctx := context.Background()
	c := newBenchmarkCache(b)

	for i := 0; i < 1000; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i, time.Hour)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			cache.Query(ctx, c, "key-42", fetchValue(42), time.Hour)
		}
	})
}

//
// ================= INVALIDATION BENCH =================
//

func BenchmarkRemoveByPrefix(b *testing.B) {
	c := newBenchmarkCache(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		for j := 0; j < 100; j++ {
			c.Set(cache.BuildKey("v1:posyandu", "list", j, 10), j, time.Hour)
		}
		b.StartTimer()
		c.RemoveByPrefix("v1:posyandu")
	}
}

//
// ================= HIGH CONCURRENCY =================
//

func BenchmarkFetchQueryHighConcurrency(b *testing.B) {
	ctx := context.Background()
	c := newBenchmarkCache(b)

	keys := make([]string, 10000)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}

	b.ResetTimer()

	wg := sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < b.N/100; j++ {
				cache.FetchQuery(ctx, c, keys[j%len(keys)], fetchValue(j), time.Hour)
			}
		}()
	}
	wg.Wait()
}
