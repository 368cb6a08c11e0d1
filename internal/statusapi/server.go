// Package statusapi serves a small read-only HTTP surface for operators:
// health, conversation state, scheduled tasks, the action log and
// Prometheus metrics.
package statusapi

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zulandar/pcremote/internal/actions"
	"github.com/zulandar/pcremote/internal/models"
	"github.com/zulandar/pcremote/internal/state"
)

// TaskSource lists scheduled tasks and their next fire time.
type TaskSource interface {
	Tasks(ctx context.Context) ([]models.AutomationTask, error)
	Next(id uint) (time.Time, bool)
}

// ActionSource returns the newest action log rows.
type ActionSource interface {
	Recent(ctx context.Context, limit int) ([]models.ActionLog, error)
}

// SampleSource returns the rolling CPU/RAM window.
type SampleSource interface {
	Samples() []actions.Sample
}

// Server is the status HTTP listener.
type Server struct {
	listen    string
	store     *state.Store
	tasks     TaskSource
	actions   ActionSource
	samples   SampleSource
	gatherer  prometheus.Gatherer
	version   string
	startedAt time.Time
	out       io.Writer
	now       func() time.Time

	pollEvery      time.Duration
	heartbeatEvery time.Duration
}

// ServerOpts holds configuration for the status server.
type ServerOpts struct {
	Listen   string // host:port
	Store    *state.Store
	Tasks    TaskSource          // optional
	Actions  ActionSource        // optional
	Samples  SampleSource        // optional
	Gatherer prometheus.Gatherer // optional; enables /metrics
	Version  string
	Out      io.Writer // optional startup line
}

// NewServer validates opts and creates a Server.
func NewServer(opts ServerOpts) (*Server, error) {
	if opts.Listen == "" {
		return nil, fmt.Errorf("statusapi: listen address is required")
	}
	if _, _, err := net.SplitHostPort(opts.Listen); err != nil {
		return nil, fmt.Errorf("statusapi: listen address %q: %w", opts.Listen, err)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("statusapi: store is required")
	}
	return &Server{
		listen:    opts.Listen,
		store:     opts.Store,
		tasks:     opts.Tasks,
		actions:   opts.Actions,
		samples:   opts.Samples,
		gatherer:  opts.Gatherer,
		version:   opts.Version,
		startedAt: time.Now(),
		out:       opts.Out,
		now:       time.Now,

		pollEvery:      3 * time.Second,
		heartbeatEvery: 15 * time.Second,
	}, nil
}

// Handler builds the gin engine serving every route.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	s.registerRoutes(router)
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if s.out != nil {
		fmt.Fprintf(s.out, "Status API listening on http://%s\n", s.listen)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("statusapi: %w", err)
	}
	return nil
}

// metricsHandler exposes the gatherer in the Prometheus text format.
func metricsHandler(g prometheus.Gatherer) gin.HandlerFunc {
	h := promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
