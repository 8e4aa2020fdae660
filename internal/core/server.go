// Package core provides the API chassis for the rain-check service.
// It creates a chi router used both by the standalone HTTP server and by the
// AWS Lambda API Gateway adapter. It enforces cross-cutting concerns
// (logging, metrics, error formatting) before requests reach domain handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Zidanesyah/willItRain/internal/config"
)

// MetricsCollector defines the interface for recording API telemetry.
// Implementations record request latency and count metrics to CloudWatch
// or equivalent backends.
type MetricsCollector interface {
	// RecordRequest records API request metrics including latency and count.
	// endpoint is the chi route pattern, not the raw path.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// RouteRegistrar mounts a group of domain routes under /api.
type RouteRegistrar func(r chi.Router)

// Server encapsulates all dependencies for the HTTP API, allowing for
// easy injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector

	// HealthProbes back the readiness endpoint.
	HealthProbes []HealthProbe

	// APIRouteRegistrars are populated by the application entry point so the
	// core package never imports handler packages.
	APIRouteRegistrars []RouteRegistrar

	router *chi.Mux
}

// NewServer initializes dependencies and prepares the server for route
// mounting. The caller is responsible for calling MountRoutes after setting
// Metrics, HealthProbes and APIRouteRegistrars.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases server resources. Collectors that buffer data are
// flushed if they implement Flush.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	if flusher, ok := s.Metrics.(interface{ Flush(context.Context) error }); ok {
		if err := flusher.Flush(ctx); err != nil {
			s.Logger.Error("error flushing metrics", "error", err)
			return fmt.Errorf("flushing metrics: %w", err)
		}
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
