package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/docagent/internal/models"
	"github.com/hyperjump/docagent/internal/storage"
)

type ingestRequest struct {
	Path    string `json:"path,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

type askRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type askResponse struct {
	*models.AskResult
	RequestID string `json:"request_id"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !s.config.Server.AllowIngestAPI {
		s.respondError(w, r, http.StatusForbidden, "ingest API is disabled")
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ingest request", zap.String("path", req.Path), zap.String("title", req.Title))

	var (
		res *models.IngestResult
		err error
	)
	switch {
	case req.Path != "":
		res, err = s.svc.Ingest(r.Context(), req.Path)
	case strings.TrimSpace(req.Content) != "":
		res, err = s.svc.IngestText(r.Context(), &models.Document{Title: req.Title, Content: req.Content})
	default:
		s.respondError(w, r, http.StatusBadRequest, "path or content is required")
		return
	}
	if err != nil {
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, r, statusFor(err), err.Error())
		return
	}
	status := http.StatusCreated
	if res.Skipped() {
		status = http.StatusOK
	}
	s.respondJSON(w, status, res)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.svc.AskQuery(r.Context(), models.Query{Text: req.Query, TopK: req.TopK})
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, r, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, askResponse{AskResult: res, RequestID: middleware.GetReqID(r.Context())})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, r, statusFor(err), err.Error())
		return
	}
	resp := map[string]interface{}{
		"collection": st,
		"config": map[string]interface{}{
			"chunk_size":         s.config.Chunking.ChunkSize,
			"chunk_overlap":      s.config.Chunking.OverlapOrDefault(),
			"top_k":              s.config.Retrieval.TopK,
			"embedding_provider": s.config.Embedding.Provider,
			"generation_model":   s.config.Generation.Model,
			"database_path":      s.config.Storage.DatabasePath,
		},
	}
	if diskBytes, err := storage.DatabaseSizeBytes(s.config.Storage.DatabasePath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrConfig):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrExtractionEmpty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrEmbedderMismatch):
		return http.StatusConflict
	case errors.Is(err, models.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error":      message,
		"request_id": middleware.GetReqID(r.Context()),
	})
}
