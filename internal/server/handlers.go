package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/nlerner/breslov-rag/internal/engine"
	"github.com/nlerner/breslov-rag/internal/models"
)

type queryRequest struct {
	Question string `json:"question"`
	Language string `json:"language,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
}

type reindexRequest struct {
	Reason string `json:"reason,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service":     "breslov-rag",
		"description": "Ask questions about the works of Rabbi Nachman of Breslov",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if !s.engine.Ready() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": "ok",
		"ready":  s.engine.Ready(),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	lang := models.Language(req.Language)
	if req.Language != "" && !lang.Valid() {
		writeError(w, http.StatusBadRequest, "language must be one of fr, he, en")
		return
	}

	topK := req.TopK
	if topK == 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK < 0 || topK > engine.MaxTopK {
		writeError(w, http.StatusBadRequest, "top_k must be in 1..50")
		return
	}

	result, err := s.engine.Query(r.Context(), req.Question, engine.QueryOptions{
		TopK:     topK,
		Language: lang,
	})
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNotReady):
			writeError(w, http.StatusServiceUnavailable, "index not ready, run ingestion first")
		case errors.Is(err, engine.ErrEmptyQuestion):
			writeError(w, http.StatusBadRequest, "question is required")
		default:
			log.Printf("server: query failed: %v", err)
			writeError(w, http.StatusInternalServerError, "query failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.engine.ListBooks(r.Context())
	if err != nil {
		if errors.Is(err, engine.ErrNotReady) {
			writeError(w, http.StatusServiceUnavailable, "index not ready")
			return
		}
		log.Printf("server: listing books failed: %v", err)
		writeError(w, http.StatusInternalServerError, "listing books failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.GetStats(r.Context())
	if err != nil {
		if errors.Is(err, engine.ErrNotReady) {
			writeError(w, http.StatusServiceUnavailable, "index not ready")
			return
		}
		log.Printf("server: stats failed: %v", err)
		writeError(w, http.StatusInternalServerError, "collecting stats failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if r.Body != nil {
		// An empty body is fine; the reason is optional.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	id, err := s.engine.Reindex(req.Reason)
	if err != nil {
		log.Printf("server: reindex request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "recording reindex request failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"request_id": id,
		"status":     "pending",
		"detail":     "the index will be rebuilt by the next ingestion run",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
