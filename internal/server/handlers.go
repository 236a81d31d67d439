package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ppiankov/callaudit/internal/ingest"
	"github.com/ppiankov/callaudit/internal/store"
)

type statusResponse struct {
	Status       string `json:"status"`
	Service      string `json:"service"`
	Version      string `json:"version,omitempty"`
	RulesVersion string `json:"rules_version"`
	Scorer       string `json:"scorer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type verdictsResponse struct {
	Verdicts []store.Entry `json:"verdicts"`
	Count    int           `json:"count"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	a := s.pipeline.Auditor()
	scorer := "neutral"
	if a.Scorer() != nil {
		scorer = a.Scorer().Name()
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:       "online",
		Service:      ServiceName,
		Version:      s.version,
		RulesVersion: a.Table().Version(),
		Scorer:       scorer,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAuditCall audits one webhook payload. Any supported payload shape is
// accepted; the response is the audit report including call_id.
func (s *Server) handleAuditCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}

	rec, err := ingest.Normalize(body)
	if err != nil {
		s.logger.Warn("rejected webhook payload", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report := s.pipeline.AuditRecord(r.Context(), rec)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleVerdicts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := store.DefaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.verdicts.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("list verdicts failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list verdicts failed")
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}

	writeJSON(w, http.StatusOK, verdictsResponse{Verdicts: entries, Count: len(entries)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
