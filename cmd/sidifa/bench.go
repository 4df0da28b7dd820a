package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	cache "github.com/sidifa/querycache"
	"github.com/sidifa/querycache/engine"
	"github.com/sidifa/querycache/eviction"
)

type benchConfig struct {
	shards      int
	capacity    int
	preloadKeys int
	goroutines  int
	opsPerG     int
}

func newBenchCmd() *cobra.Command {
	cfg := benchConfig{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure read throughput of the query cache under concurrency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&cfg.shards, "shards", 8, "number of shards")
	cmd.Flags().IntVar(&cfg.capacity, "capacity", 200000, "total capacity, 0 for unbounded")
	cmd.Flags().IntVar(&cfg.preloadKeys, "keys", 100000, "keys preloaded before the run")
	cmd.Flags().IntVar(&cfg.goroutines, "goroutines", 200, "concurrent readers")
	cmd.Flags().IntVar(&cfg.opsPerG, "ops", 5000, "reads per goroutine")
	return cmd
}

func runBench(ctx context.Context, cfg benchConfig) error {
	const window = time.Minute

	fmt.Println("\n================ QUERY CACHE BENCHMARK =================")
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Shards       :", cfg.shards)
	fmt.Println("Capacity     :", cfg.capacity)
	fmt.Println("Preload Keys :", cfg.preloadKeys)
	fmt.Println("Goroutines   :", cfg.goroutines)
	fmt.Println("Ops/Goroutine:", cfg.opsPerG)
	fmt.Println("---------------------------------")

	if cfg.preloadKeys <= 0 || cfg.goroutines <= 0 || cfg.opsPerG <= 0 {
		return errors.New("keys, goroutines and ops must be positive")
	}

	c, err := cache.New(cache.Config{
		Shards:   cfg.shards,
		Capacity: cfg.capacity,
		Eviction: eviction.LRU,
	}, engine.NewQueryEngine(nil, nil, nil, nil))
	if err != nil {
		return err
	}
	defer c.Close()

	keys := make([]string, cfg.preloadKeys)
	for i := range keys {
		keys[i] = cache.BuildKey("v1:ibk", "detail", i)
	}

	fmt.Println("Preloading cache...")
	for i, key := range keys {
		c.Set(key, i, window)
	}
	fmt.Println("Preload complete.")

	fmt.Println("Running concurrency benchmark...")
	fetch := func(context.Context) (int, error) { return -1, nil }

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.goroutines; i++ {
		offset := i
		g.Go(func() error {
			for j := 0; j < cfg.opsPerG; j++ {
				key := keys[(offset+j)%len(keys)]
				if _, err := cache.FetchQuery(gctx, c, key, fetch, window); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	duration := time.Since(start)
	totalOps := cfg.goroutines * cfg.opsPerG

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Operations : %d\n", totalOps)
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %.2f ops/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Printf("Entries          : %d\n", c.Len())
	fmt.Println("=========================================")
	return nil
}
