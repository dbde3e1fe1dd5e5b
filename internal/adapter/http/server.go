package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/cty-prefix-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SnapshotProvider exposes the current prefix tables and readiness.
type SnapshotProvider interface {
	sharedobs.ReadinessChecker
	Snapshot() *domain.Snapshot
}

// Server exposes health, readiness, metrics, and table lookup HTTP endpoints.
type Server struct {
	httpServer *http.Server
	tables     SnapshotProvider
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 lookup routes.
func NewServer(addr string, tables SnapshotProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		tables: tables,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(tables))
	mux.Handle("GET /metrics", promhttp.Handler())

	// Keys may contain '/', so the wildcard takes the rest of the path.
	mux.HandleFunc("GET /v1/prefixes/{key...}", s.handleLookup(domain.KindPattern))
	mux.HandleFunc("GET /v1/exact/{key...}", s.handleLookup(domain.KindExact))
	mux.HandleFunc("GET /v1/stats", s.handleStats)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleLookup returns the raw table row for a key. No prefix matching is
// attempted; the key must be stored exactly as requested.
func (s *Server) handleLookup(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.tables.Snapshot()
		if snap == nil {
			sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "prefix tables not loaded"})
			return
		}

		key := r.PathValue("key")
		entry, ok := snap.Lookup(kind, key)
		if !ok {
			s.logger.Debug("lookup miss", "kind", kind, "key", key)
			sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "key not found"})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, entry)
	}
}

type statsResponse struct {
	Source      string       `json:"source"`
	LoadedAt    time.Time    `json:"loaded_at"`
	PatternKeys int          `json:"pattern_keys"`
	ExactKeys   int          `json:"exact_keys"`
	Countries   int          `json:"countries"`
	Lines       domain.Stats `json:"lines"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	snap := s.tables.Snapshot()
	if snap == nil {
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "prefix tables not loaded"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, statsResponse{
		Source:      snap.Source,
		LoadedAt:    snap.LoadedAt,
		PatternKeys: len(snap.Patterns),
		ExactKeys:   len(snap.Exact),
		Countries:   len(snap.Countries),
		Lines:       snap.Stats,
	})
}
