// Package server exposes the flight dashboard as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/yash/flightinsight/internal/insight"
	"github.com/yash/flightinsight/internal/memory"
	"github.com/yash/flightinsight/internal/metrics"
	"github.com/yash/flightinsight/internal/session"
	"github.com/yash/flightinsight/pkg/models"
)

// Version is reported by /health.
const Version = "1.0.0"

// Credentials records which upstream keys are configured. Values are never
// exposed, only their presence.
type Credentials struct {
	AviationStack bool `json:"aviationstack"`
	Gemini        bool `json:"gemini"`
}

// Defaults are the preselected fetch inputs.
type Defaults struct {
	Source    models.Source    `json:"source"`
	Country   string           `json:"country"`
	TimeRange models.TimeRange `json:"time_range"`
	Analyses  []insight.Kind   `json:"analyses"`
}

// MemoryProbe reports heap pressure for /health.
type MemoryProbe interface {
	Stats() memory.Stats
}

// Config configures the HTTP server.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Credentials     Credentials
	Defaults        Defaults
	Memory          MemoryProbe // optional
}

// Server serves one session.
type Server struct {
	cfg       Config
	echo      *echo.Echo
	session   *session.Session
	logger    *slog.Logger
	startTime time.Time
	now       func() time.Time
	ready     atomic.Bool
}

// New builds the server and registers its routes.
func New(cfg Config, sess *session.Session, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		cfg:       cfg,
		session:   sess,
		logger:    logger,
		startTime: time.Now(),
		now:       time.Now,
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = cfg.ReadTimeout
	s.echo.Server.WriteTimeout = cfg.WriteTimeout
	s.echo.HTTPErrorHandler = s.handleError

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: newRequestID}))
	s.echo.Use(requestLogger(s.logger))
	s.echo.Use(requestMetrics())
	s.echo.Use(echomw.BodyLimit("64K"))
}

func (s *Server) setupRoutes() {
	// Health
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/live", s.handleLive)

	// Metrics
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.handleStatus)
	api.POST("/fetch", s.handleFetch)
	api.GET("/flights", s.handleFlights)
	api.GET("/flights/options", s.handleFilterOptions)
	api.GET("/summary", s.handleSummary)
	api.GET("/charts", s.handleCharts)
	api.GET("/insights", s.handleInsights)
	api.GET("/export.csv", s.handleExport)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.cfg.Addr)
		if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.ready.Store(true)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.ready.Store(false)
	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
