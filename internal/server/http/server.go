// Package httpserver provides the HTTP API server for the paper search gateway.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-search-gateway/internal/database"
	"github.com/helixir/paper-search-gateway/internal/domain"
	"github.com/helixir/paper-search-gateway/internal/observability"
	"github.com/helixir/paper-search-gateway/internal/retrieval"
)

// RetrievalClient is the outbound surface of the retrieval service used by
// the handlers.
type RetrievalClient interface {
	Retrieve(ctx context.Context, query string) ([]retrieval.RawRecord, error)
	DeepSearch(ctx context.Context, query string, opts domain.SearchOptions) ([]retrieval.RawRecord, error)
	Stats(ctx context.Context) (*retrieval.DatabaseStats, error)
}

// ResultEnricher augments formatted results with database-sourced fields.
type ResultEnricher interface {
	Enrich(ctx context.Context, items []domain.SearchResultItem, includeSocial bool) []domain.SearchResultItem
}

// CacheStore is the deep search result cache.
type CacheStore interface {
	Get(fingerprint string) (domain.CacheEntry, bool)
	Put(fingerprint string, entry domain.CacheEntry) error
}

// SampleProvider serves the static fallback payload.
type SampleProvider interface {
	Fallback() []domain.SearchResultItem
}

// HealthChecker reports database pool health for the probe endpoints.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server

	retrievalClient RetrievalClient
	enricher        ResultEnricher
	cacheStore      CacheStore
	samples         SampleProvider
	health          HealthChecker

	configDocPath string
	validate      *validator.Validate
	logger        zerolog.Logger
	metrics       *observability.Metrics
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// ConfigDocumentPath is the JSON document served verbatim by /api/config.
	ConfigDocumentPath string
}

// NewServer creates the HTTP server with all its dependencies. Metrics may
// be nil.
func NewServer(
	cfg Config,
	retrievalClient RetrievalClient,
	enricher ResultEnricher,
	cacheStore CacheStore,
	samples SampleProvider,
	health HealthChecker,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		retrievalClient: retrievalClient,
		enricher:        enricher,
		cacheStore:      cacheStore,
		samples:         samples,
		health:          health,
		configDocPath:   cfg.ConfigDocumentPath,
		validate:        validator.New(),
		logger:          logger.With().Str("component", "http-server").Logger(),
		metrics:         metrics,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)

	// The front end is served from a different origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)

		r.Get("/config", s.getConfig)
		r.Get("/search", s.search)
		r.Get("/deep_search", s.deepSearch)
		r.Get("/stats", s.getStats)
	})

	return r
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
