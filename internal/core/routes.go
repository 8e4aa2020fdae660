package core

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"

	"github.com/Zidanesyah/willItRain/internal/types"
)

// defaultRequestTimeout applies when the config does not set one.
const defaultRequestTimeout = 15 * time.Second

// gzipMinSize is the smallest response body worth compressing.
const gzipMinSize = 512

// defaultRedactedHeaders lists header names whose values are masked in request
// logs to prevent accidental leakage of credentials or session tokens.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
	"X-Api-Key",
}

// MountRoutes defines the top-level routing hierarchy.
// It registers the global middleware chain, the /api group, and the probe
// endpoints.
func (s *Server) MountRoutes() error {
	// Global Middleware Registration (strict order matters).
	if err := s.registerGlobalMiddleware(); err != nil {
		return err
	}

	s.router.Route("/api", s.mountAPI)

	s.router.Get("/health", s.HandleLiveness)
	s.router.Get("/ready", s.HandleReadiness)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundRoute, "route not found", nil))
	})
	return nil
}

// registerGlobalMiddleware applies middleware in strict order.
//
// Ordering Rationale:
//  1. Recoverer          - Catches panics; outermost to catch all failures.
//  2. ContextTimeout     - Bounds the whole request, upstream calls included.
//  3. RequestID          - Generates/propagates correlation ID.
//  4. SecurityHeaders    - Ensures all responses include security headers.
//  5. RequestLogger      - Structured logging (redacted headers).
//  6. CORS               - Browser access headers and preflight.
//  7. Metrics            - Request latency and count recording.
//  8. Compression        - gzip for clients that accept it.
func (s *Server) registerGlobalMiddleware() error {
	gzip, err := gzhttp.NewWrapper(gzhttp.MinSize(gzipMinSize))
	if err != nil {
		return err
	}

	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))
	s.router.Use(NewCORSMiddleware(s.corsAllowedOrigins()))
	s.router.Use(s.MetricsMiddleware)
	s.router.Use(func(next http.Handler) http.Handler { return gzip(next) })
	return nil
}

func (s *Server) mountAPI(r chi.Router) {
	for _, registrar := range s.APIRouteRegistrars {
		registrar(r)
	}
}

func (s *Server) requestTimeout() time.Duration {
	if s.Config != nil && s.Config.Server.RequestTimeout > 0 {
		return s.Config.Server.RequestTimeout
	}
	return defaultRequestTimeout
}

func (s *Server) corsAllowedOrigins() []string {
	if s.Config != nil && len(s.Config.Security.CorsAllowedOrigins) > 0 {
		return s.Config.Security.CorsAllowedOrigins
	}
	return []string{"*"}
}
