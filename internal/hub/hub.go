// Package hub is the long-running server side of sc3kit: it receives
// forge webhooks, accepts manual dispatches, and serves the run and
// release history over HTTP. Runs execute one at a time off a bounded
// queue, so two pushes can never race a release.
package hub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hazukari/sc3kit/internal/config"
	"github.com/hazukari/sc3kit/internal/observability"
	"github.com/hazukari/sc3kit/internal/registry"
	"github.com/hazukari/sc3kit/internal/workflow"
)

// RunStarter executes one pipeline run for an event. Tests substitute
// fakes; production wires *pipeline.Pipeline.
type RunStarter interface {
	Execute(ctx context.Context, ev workflow.Event) (*registry.Run, error)
}

// Server is the hub. Create it with New, then call Run.
type Server struct {
	settings config.HubSettings
	workflow *workflow.File
	pipeline RunStarter
	registry *registry.Registry
	logger   zerolog.Logger
	metrics  *observability.Metrics

	router  *gin.Engine
	queue   chan workflow.Event
	done    chan struct{}
	started time.Time
}

// New assembles the hub router and queue. Nothing listens until Run.
func New(cfg config.HubSettings, wf *workflow.File, pipe RunStarter, reg *registry.Registry, logger zerolog.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		settings: cfg,
		workflow: wf,
		pipeline: pipe,
		registry: reg,
		logger:   logger,
		metrics:  metrics,
		queue:    make(chan workflow.Event, cfg.QueueSize),
		done:     make(chan struct{}),
		started:  time.Now(),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.MetricsMiddleware(metrics))
	r.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/hooks/forge", s.handleWebhook)

	api := r.Group("/api")
	api.POST("/dispatch", s.handleDispatch)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)
	api.GET("/releases", s.handleListReleases)

	s.router = r
	return s
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully: the
// listener stops, queued runs drain, and the worker exits.
func (s *Server) Run(ctx context.Context) error {
	go s.work()

	srv := &http.Server{Addr: s.settings.Addr, Handler: s.router}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.settings.Addr).Msg("hub listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("hub shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("hub shutdown: %w", err)
	}

	// No handler can enqueue once Shutdown has returned, so closing the
	// queue here is safe and lets the worker drain what remains.
	close(s.queue)
	select {
	case <-s.done:
		return nil
	case <-shutCtx.Done():
		return fmt.Errorf("hub shutdown: %w", shutCtx.Err())
	}
}

// work executes queued events one at a time.
func (s *Server) work() {
	defer close(s.done)
	for ev := range s.queue {
		s.metrics.QueueDepth.Dec()
		run, err := s.pipeline.Execute(context.Background(), ev)
		switch {
		case err != nil && run != nil:
			s.logger.Error().Int64("run", run.ID).Str("event", ev.Kind).Err(err).Msg("run failed")
		case err != nil:
			s.logger.Error().Str("event", ev.Kind).Err(err).Msg("event not run")
		}
	}
}

var errQueueFull = errors.New("run queue is full")

// enqueue adds an event to the queue without blocking the handler.
func (s *Server) enqueue(ev workflow.Event) (int, error) {
	select {
	case s.queue <- ev:
		s.metrics.QueueDepth.Inc()
		return len(s.queue), nil
	default:
		return 0, errQueueFull
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
		"queue":  len(s.queue),
	})
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
