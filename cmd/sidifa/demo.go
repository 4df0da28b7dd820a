package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cache "github.com/sidifa/querycache"
	"github.com/sidifa/querycache/engine"
	"github.com/sidifa/querycache/eviction"
	"github.com/sidifa/querycache/freshness"
	"github.com/sidifa/querycache/refresh"
	"github.com/sidifa/querycache/types"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Walk through miss, hit, stale, dedup, invalidation and eviction on a fake API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd.Context())
		},
	}
}

type post struct {
	ID    int
	Title string
}

// fakeAPI stands in for the REST API and counts how often it is hit.
type fakeAPI struct {
	calls   atomic.Int32
	version atomic.Int32
	delay   time.Duration
}

func (a *fakeAPI) listPosts(ctx context.Context) ([]post, error) {
	n := a.calls.Add(1)
	fmt.Printf("API    → GET /posts?page=1&limit=10 (call #%d)\n", n)
	select {
	case <-time.After(a.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	v := int(a.version.Load())
	return []post{
		{ID: 1, Title: fmt.Sprintf("Jadwal posyandu v%d", v)},
		{ID: 2, Title: fmt.Sprintf("Lowongan inklusif v%d", v)},
	}, nil
}

func runDemo(ctx context.Context) error {
	const window = 30 * time.Second

	fmt.Println("\n==================== SYSTEM BOOT ====================")
	fmt.Println("EVICTION POLICY : LRU")
	fmt.Println("SHARDS          : 4")
	fmt.Println("FRESHNESS       :", window)
	fmt.Println("CLOCK           : manual")

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	log := logger.WithField("component", "demo")

	clock := freshness.NewManualClock(time.Now())
	metrics := &types.CounterMetrics{}
	eng := engine.NewQueryEngine(clock, refresh.NewWorker(1, 16, log), metrics, log)

	c, err := cache.New(cache.Config{Shards: 4}, eng)
	if err != nil {
		return err
	}

	api := &fakeAPI{delay: 50 * time.Millisecond}
	key := cache.BuildKey("v1:posts", "list", 1, 10, "")
	fmt.Println("KEY             :", key)

	// ====================================================
	fmt.Println("\n==================== 1) CACHE MISS ====================")
	res, err := cache.Query(ctx, c, key, api.listPosts, window)
	if err != nil {
		return err
	}
	printResult(res)

	// ====================================================
	fmt.Println("\n==================== 2) CACHE HIT ====================")
	res, _ = cache.Query(ctx, c, key, api.listPosts, window)
	printResult(res)

	// ====================================================
	fmt.Println("\n==================== 3) STALE WHILE REVALIDATE ====================")
	api.version.Store(1)
	clock.Advance(window + time.Second)
	fmt.Println("CLOCK  → +", window+time.Second)
	res, _ = cache.Query(ctx, c, key, api.listPosts, window)
	printResult(res)
	if !waitFresh(c, key, window, 2*time.Second) {
		fmt.Println("CACHE  → revalidation did not finish in time")
	}
	res, _ = cache.Query(ctx, c, key, api.listPosts, window)
	printResult(res)

	// ====================================================
	fmt.Println("\n==================== 4) SINGLEFLIGHT ====================")
	dedupKey := cache.BuildKey("v1:posts", "list", 2, 10, "")
	before := api.calls.Load()

	wg := sync.WaitGroup{}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			val, err := cache.FetchQuery(ctx, c, dedupKey, api.listPosts, window)
			fmt.Printf("GOROUTINE-%d → %d posts, err=%v\n", id, len(val), err)
		}(i)
	}
	wg.Wait()
	fmt.Printf("API    → %d call(s) for 5 concurrent readers\n", api.calls.Load()-before)

	// ====================================================
	fmt.Println("\n==================== 5) INVALIDATION ====================")
	removed := c.RemoveByPrefix("v1:posts:")
	fmt.Printf("CACHE  → REMOVE prefix v1:posts: (%d keys)\n", removed)
	res, _ = cache.Query(ctx, c, key, api.listPosts, window)
	printResult(res)

	// ====================================================
	fmt.Println("\n==================== 6) EVICTION ====================")
	bounded, err := cache.New(cache.Config{Shards: 4, Capacity: 20, Eviction: eviction.LRU}, engine.NewQueryEngine(clock, nil, metrics, log))
	if err != nil {
		return err
	}
	for i := 0; i < 50; i++ {
		bounded.Set(cache.BuildKey("v1:ibk", "detail", i), i, window)
	}
	fmt.Printf("CACHE  → 50 puts into capacity 20, %d entries kept\n", bounded.Len())

	// ====================================================
	snap := metrics.Snapshot()
	fmt.Println("\n==================== METRICS ====================")
	fmt.Printf("HITS        : %d\n", snap.Hits)
	fmt.Printf("MISSES      : %d\n", snap.Misses)
	fmt.Printf("STALE       : %d\n", snap.Stale)
	fmt.Printf("REFRESHES   : %d\n", snap.Refreshes)
	fmt.Printf("EVICTIONS   : %d\n", snap.Evictions)
	fmt.Printf("INVALIDATED : %d\n", snap.Invalidated)

	// ====================================================
	fmt.Println("\n==================== SHUTDOWN ====================")
	c.Close()
	bounded.Close()
	fmt.Println("SYSTEM → cache closed cleanly")
	return nil
}

func printResult(res cache.Result[[]post]) {
	title := ""
	if len(res.Value) > 0 {
		title = res.Value[0].Title
	}
	fmt.Printf("CACHE  → %-5s %d posts, first = %q\n", res.Status, len(res.Value), title)
}

// waitFresh polls until the background revalidation has replaced the entry.
func waitFresh(c *cache.QueryCache, key string, window, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.IsFresh(key, window) {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
