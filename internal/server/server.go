// Package server provides the HTTP admin API for checkpointd.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wrenlabs/checkpointd/internal/checkpoint"
)

// Server exposes checkpoint administration over HTTP.
type Server struct {
	echo   *echo.Echo
	store  *checkpoint.Store
	logger *zap.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(store *checkpoint.Store, logger *zap.Logger, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9090,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})
	metrics := NewHTTPMetrics(logger)
	e.Use(metrics.MetricsMiddleware())

	s := &Server{
		echo:   e,
		store:  store,
		logger: logger,
		config: cfg,
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Health check and Prometheus scrape endpoint
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	v1.GET("/sessions", s.handleListSessions)
	v1.GET("/sessions/:id", s.handleGetSession)
	v1.GET("/sessions/:id/ttl", s.handleSessionTTL)
	v1.DELETE("/sessions/:id", s.handleDeleteSession)
	v1.DELETE("/sessions", s.handlePurgeSessions)
	v1.GET("/stats", s.handleStats)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}

// SessionSummary describes one active session in a listing.
type SessionSummary struct {
	SessionID    string  `json:"session_id"`
	RemainingTTL float64 `json:"remaining_ttl_seconds"`
}

// SessionListResponse is the response body for GET /api/v1/sessions.
type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
	Count    int              `json:"count"`
}

// SessionResponse is the response body for GET /api/v1/sessions/:id.
type SessionResponse struct {
	SessionID  string                 `json:"session_id"`
	Checkpoint *checkpoint.Checkpoint `json:"checkpoint"`
}

// TTLResponse is the response body for GET /api/v1/sessions/:id/ttl.
type TTLResponse struct {
	SessionID    string  `json:"session_id"`
	RemainingTTL float64 `json:"remaining_ttl_seconds"`
}

// PurgeResponse is the response body for DELETE /api/v1/sessions.
type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}

// StatsResponse is the response body for GET /api/v1/stats.
type StatsResponse struct {
	ActiveSessions  int     `json:"active_sessions"`
	AvgRemainingTTL float64 `json:"avg_remaining_ttl_seconds"`
	BackendKeys     int64   `json:"backend_keys"`
}

// handleHealth pings the backend and reports readiness.
func (s *Server) handleHealth(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Redis: "unreachable"})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Redis: "ok"})
}

// handleListSessions returns all active sessions with their remaining TTLs.
func (s *Server) handleListSessions(c echo.Context) error {
	sessions, err := s.store.ListActive(c.Request().Context())
	if err != nil {
		return s.mapError(c, err)
	}

	resp := SessionListResponse{Sessions: make([]SessionSummary, 0, len(sessions)), Count: len(sessions)}
	for _, info := range sessions {
		resp.Sessions = append(resp.Sessions, SessionSummary{
			SessionID:    info.SessionID,
			RemainingTTL: info.RemainingTTL.Seconds(),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// handleGetSession returns the stored checkpoint for one session.
func (s *Server) handleGetSession(c echo.Context) error {
	id := c.Param("id")
	cp, err := s.store.Load(c.Request().Context(), id)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, SessionResponse{SessionID: id, Checkpoint: cp})
}

// handleSessionTTL returns the remaining lifetime of one session.
func (s *Server) handleSessionTTL(c echo.Context) error {
	id := c.Param("id")
	ttl, err := s.store.RemainingTTL(c.Request().Context(), id)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, TTLResponse{SessionID: id, RemainingTTL: ttl.Seconds()})
}

// handleDeleteSession removes one session's checkpoint.
func (s *Server) handleDeleteSession(c echo.Context) error {
	id := c.Param("id")
	if err := s.store.Delete(c.Request().Context(), id); err != nil {
		return s.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handlePurgeSessions removes every checkpoint in the namespace.
func (s *Server) handlePurgeSessions(c echo.Context) error {
	deleted, err := s.store.PurgeAll(c.Request().Context())
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, PurgeResponse{Deleted: deleted})
}

// handleStats returns aggregate store statistics.
func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.store.Stats(c.Request().Context())
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, StatsResponse{
		ActiveSessions:  stats.ActiveSessions,
		AvgRemainingTTL: stats.AvgRemainingTTL.Seconds(),
		BackendKeys:     stats.BackendKeys,
	})
}

// mapError translates store errors to HTTP status codes. Corrupt records
// surface as 404 like missing ones; the store logs the corruption detail.
func (s *Server) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, checkpoint.ErrNotFound), errors.Is(err, checkpoint.ErrCorruptRecord):
		return echo.NewHTTPError(http.StatusNotFound, "session expired or not found")
	case errors.Is(err, checkpoint.ErrInvalidSessionID):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	case errors.Is(err, checkpoint.ErrBackendUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "backend unavailable")
	default:
		s.logger.Error("unhandled store error", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
