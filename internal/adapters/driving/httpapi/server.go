// Package httpapi exposes the ingest, search and answer pipelines over
// HTTP. Routes:
//
//	POST /upload   multipart PDF upload, field "file"
//	POST /search   {"query_text": "...", "k": 5}
//	POST /answer   {"query": "..."}
//	GET  /healthz  liveness
//	GET  /         status and index statistics
//	GET  /metrics  Prometheus metrics, when configured
//	     /mcp      MCP streamable HTTP transport, when configured
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Defaults for Config fields left zero.
const (
	DefaultSearchK        = 5
	DefaultMaxUploadBytes = 64 << 20
)

// Config wires the server to the core services.
type Config struct {
	Ingest driving.IngestService
	Search driving.SearchService
	Answer driving.AnswerService

	// History is served on /history when set.
	History driving.HistoryService

	// Metrics is mounted on /metrics when set.
	Metrics http.Handler

	// MCP is mounted under /mcp when set.
	MCP http.Handler

	// UploadDir holds uploads while they are ingested. Defaults to os.TempDir().
	UploadDir string

	// MaxUploadBytes bounds the upload body.
	MaxUploadBytes int64

	// SearchK is the k used when a search request leaves it unset.
	SearchK int
}

// Server is the HTTP front end.
type Server struct {
	cfg    Config
	router *mux.Router
}

// New creates a server and registers its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Search == nil {
		return nil, errors.New("httpapi: search service is required")
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.SearchK <= 0 {
		cfg.SearchK = DefaultSearchK
	}

	s := &Server{cfg: cfg, router: mux.NewRouter()}
	s.RegisterRoutes(s.router)
	return s, nil
}

// RegisterRoutes registers all API routes on router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.Use(logRequests)

	router.HandleFunc("/", s.root).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	router.HandleFunc("/search", s.search).Methods(http.MethodPost)

	if s.cfg.Ingest != nil {
		router.HandleFunc("/upload", s.upload).Methods(http.MethodPost)
	}
	if s.cfg.Answer != nil {
		router.HandleFunc("/answer", s.answer).Methods(http.MethodPost)
	}
	if s.cfg.History != nil {
		router.HandleFunc("/history", s.history).Methods(http.MethodGet)
	}
	if s.cfg.Metrics != nil {
		router.Handle("/metrics", s.cfg.Metrics).Methods(http.MethodGet)
	}
	if s.cfg.MCP != nil {
		router.PathPrefix("/mcp").Handler(s.cfg.MCP)
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		done := logger.Timed(r.Method + " " + r.URL.Path)
		defer done()
		next.ServeHTTP(w, r)
	})
}
