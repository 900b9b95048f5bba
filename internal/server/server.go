// Package server provides the HTTP API for agentroute.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/agentroute/internal/catalog"
	"github.com/hyperjump/agentroute/internal/config"
	"github.com/hyperjump/agentroute/internal/models"
	"github.com/hyperjump/agentroute/internal/pipeline"
	"github.com/hyperjump/agentroute/internal/session"
)

// QueryHandler runs a query in a session.
type QueryHandler interface {
	HandleQueryInSession(ctx context.Context, sess *session.Context, query string) pipeline.Result
}

// KnowledgeBase is the retrieval side the operator endpoints read.
type KnowledgeBase interface {
	KeywordSearch(ctx context.Context, query string, limit int) ([]models.Hit, error)
	DocumentCount() int
	IndexSize() int
}

// CatalogStatus reports on the loaded product catalog.
type CatalogStatus interface {
	Path() string
	Table() *catalog.Table
	LoadError() error
}

// Deps are the components behind the HTTP API. KB and Catalog may be nil.
type Deps struct {
	Pipeline  QueryHandler
	Sessions  *session.Store
	KB        KnowledgeBase
	Catalog   CatalogStatus
	Backends  []string
	WebSource string
}

// Server is the HTTP server for the agentroute API.
type Server struct {
	deps    Deps
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
	started time.Time
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore(cfg.Session.TTL, cfg.Session.CleanupInterval)
	}
	return &Server{
		deps:    deps,
		config:  cfg,
		logger:  logger,
		started: time.Now(),
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Get("/sessions/{id}/stats", s.handleSessionStats)
		r.Get("/stats", s.handleStats)
		r.Post("/kb/search", s.handleKBSearch)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
