package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/agentroute/internal/models"
	"github.com/hyperjump/agentroute/internal/retrieval"
	"github.com/hyperjump/agentroute/internal/storage"
)

const defaultKBSearchLimit = 10

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess := s.deps.Sessions.GetOrCreate(req.SessionID)
	s.logger.Debug("query request", zap.String("query", req.Query), zap.String("session", sess.ID()))

	res := s.deps.Pipeline.HandleQueryInSession(r.Context(), sess, req.Query)
	s.respondJSON(w, http.StatusOK, models.QueryResponse{
		Answer:    res.Answer,
		Steps:     res.Steps,
		Trace:     res.Trace,
		SessionID: res.SessionID,
	})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.deps.Sessions.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, sess.Stats())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.deps.Sessions.Aggregate())
}

type kbSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (s *Server) handleKBSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.KB == nil {
		s.respondError(w, http.StatusNotImplemented, "knowledge base not configured")
		return
	}
	var req kbSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultKBSearchLimit
	}
	hits, err := s.deps.KB.KeywordSearch(r.Context(), req.Query, req.Limit)
	if errors.Is(err, retrieval.ErrNoKeywordIndex) {
		s.respondError(w, http.StatusNotImplemented, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("kb search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hits == nil {
		hits = []models.Hit{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": req.Query, "results": hits})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"uptime_seconds": time.Since(s.started).Seconds(),
		"sessions":       s.deps.Sessions.Len(),
		"backends":       nonNil(s.deps.Backends),
	}
	if s.deps.WebSource != "" {
		resp["web_search"] = s.deps.WebSource
	}
	if s.deps.KB != nil {
		resp["documents"] = s.deps.KB.DocumentCount()
		resp["vector_index_size"] = s.deps.KB.IndexSize()
	}
	if s.deps.Catalog != nil {
		info := map[string]any{"path": s.deps.Catalog.Path(), "rows": 0}
		if t := s.deps.Catalog.Table(); t != nil {
			info["rows"] = t.Len()
		}
		if err := s.deps.Catalog.LoadError(); err != nil {
			info["error"] = err.Error()
		}
		resp["catalog"] = info
	}

	cfg := s.config
	resp["config"] = map[string]any{
		"kb_dir":             cfg.Retrieval.KBDir,
		"top_k":              cfg.Retrieval.TopK,
		"metric":             cfg.Retrieval.Metric,
		"embedding_provider": cfg.Embedding.Provider,
		"database_path":      cfg.Storage.DatabasePath,
		"vector_index_path":  cfg.Storage.VectorIndexPath,
		"keyword_index_path": cfg.Storage.KeywordIndexPath,
	}
	diskBytes, err := storage.DiskUsageBytes(
		cfg.Storage.DatabasePath,
		cfg.Storage.VectorIndexPath,
		cfg.Storage.KeywordIndexPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("write response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
