package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	cache "github.com/sidifa/querycache"
	"github.com/sidifa/querycache/config"
	"github.com/sidifa/querycache/engine"
	"github.com/sidifa/querycache/logging"
	"github.com/sidifa/querycache/metrics"
	"github.com/sidifa/querycache/refresh"
	"github.com/sidifa/querycache/server"
	"github.com/sidifa/querycache/sidifa"
)

// app holds everything the gateway runs on, built once from config.
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	cache    *cache.QueryCache
	client   *sidifa.Client
	services *sidifa.Services
	server   *server.HttpServer
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}

	worker := refresh.NewWorker(cfg.Cache.RefreshWorkers, cfg.Cache.RefreshQueue, logging.Component(logger, "refresh"))
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	eng := engine.NewQueryEngine(nil, worker, metrics.NewPrometheus(reg), logging.Component(logger, "cache"))

	qc, err := cache.New(cache.Config{
		Shards:   cfg.Cache.Shards,
		Capacity: cfg.Cache.Capacity,
		Eviction: cfg.Cache.EvictionPolicy(),
	}, eng)
	if err != nil {
		worker.Close()
		return nil, fmt.Errorf("failed to build cache: %w", err)
	}

	client := sidifa.NewClient(sidifa.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Timeout: cfg.API.Timeout,
	}, logging.Component(logger, "sidifa-client"))

	services := sidifa.NewServices(client, qc, cfg.Cache.Freshness)
	srv := server.NewHttpServer(server.Config{
		Addr:    cfg.Server.Addr,
		Mode:    cfg.Server.Mode,
		Metrics: reg,
	}, services, logging.Component(logger, "http"))

	return &app{
		cfg:      cfg,
		logger:   logger,
		cache:    qc,
		client:   client,
		services: services,
		server:   srv,
	}, nil
}

// Close drains background revalidations before dropping connections.
func (a *app) Close() {
	a.cache.Close()
	if err := a.client.Close(); err != nil {
		a.logger.WithError(err).Warn("failed to close API client")
	}
}
