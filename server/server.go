package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/sidifa/querycache/sidifa"
)

const shutdownTimeout = 10 * time.Second

type Config struct {
	Addr string
	Mode string // gin mode, release when empty

	// Metrics is served on /metrics when set.
	Metrics prometheus.Gatherer
}

// HttpServer is the caching gateway in front of the SI-DIFA REST API.
type HttpServer struct {
	engine *gin.Engine
	addr   string
	log    *logrus.Entry
}

// NewHttpServer wires the routes for services onto a gin engine.
func NewHttpServer(cfg Config, services *sidifa.Services, log *logrus.Entry) *HttpServer {
	if cfg.Mode == "" {
		cfg.Mode = gin.ReleaseMode
	}
	gin.SetMode(cfg.Mode)

	server := HttpServer{
		engine: gin.New(),
		addr:   cfg.Addr,
		log:    log,
	}
	server.engine.Use(gin.Recovery())
	server.engine.Use(LoggerMiddleware(log))
	server.engine.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(http.StatusOK, "ok")
	})
	if cfg.Metrics != nil {
		server.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{})))
	}

	root := server.engine.Group("/")
	v1 := root.Group("/api/v1")
	NewResourceRoute(services.Posyandu).RegisterRouter(v1)
	NewResourceRoute(services.IBK).RegisterRouter(v1)
	NewResourceRoute(services.Laporan).RegisterRouter(v1)
	NewResourceRoute(services.Lowongan).RegisterRouter(v1)
	NewDashboardRoute(services.Dashboard).RegisterRouter(v1)
	NewDebugRoute(services.Cache()).RegisterRouter(root)

	return &server
}

// Handler exposes the router, mainly for tests.
func (httpServer *HttpServer) Handler() http.Handler {
	return httpServer.engine
}

// Run serves until ctx is done, then shuts down gracefully.
func (httpServer *HttpServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              httpServer.addr,
		Handler:           httpServer.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		httpServer.log.WithField("addr", httpServer.addr).Info("gateway listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	httpServer.log.Info("gateway shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
