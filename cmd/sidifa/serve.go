package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd(configPath *string) *cobra.Command {
	var warmRole string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the caching gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.logger.WithFields(logrus.Fields{
				"api":       a.cfg.API.BaseURL,
				"shards":    a.cfg.Cache.Shards,
				"capacity":  a.cfg.Cache.Capacity,
				"eviction":  a.cfg.Cache.EvictionPolicy(),
				"freshness": a.cfg.Cache.Freshness.String(),
			}).Info("starting sidifa gateway")

			if cmd.Flags().Changed("warm") {
				warm(ctx, a, warmRole)
			}
			return a.server.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&warmRole, "warm", "", "prefetch the dashboard of this role and the first page of every list on start")
	return cmd
}

// warm prefetches in the background; failures only cost the first readers a miss.
func warm(ctx context.Context, a *app, role string) {
	go func() {
		if err := a.services.Warm(ctx, role); err != nil {
			a.logger.WithError(err).WithField("role", role).Warn("cache warm-up failed")
			return
		}
		a.logger.WithFields(logrus.Fields{"role": role, "entries": a.cache.Len()}).Info("cache warmed")
	}()
}
