package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/sheetsync/internal/store"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *StatusServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/runs", s.handleListRuns)
	mux.HandleFunc("GET /v1/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /v1/pointers", s.handleGetPointers)
	return RecoveryMiddleware(s.logger, LoggingMiddleware(s.logger, AuthMiddleware(authToken, mux)))
}

// StatusResponse is the body of GET /v1/status.
type StatusResponse struct {
	Running  bool   `json:"running"`
	LastRun  string `json:"last_run,omitempty"`
	ExitCode int    `json:"exit_code"`
	Failed   int    `json:"failed"`
}

// handleHealth handles GET /v1/health.
func (s *StatusServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus handles GET /v1/status.
func (s *StatusServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	latest, running := s.Latest()
	resp := StatusResponse{Running: running}
	if latest != nil {
		resp.LastRun = latest.ID
		resp.ExitCode = latest.ExitCode()
		resp.Failed = len(failedUnits(latest))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListRuns handles GET /v1/runs?command=&limit=.
func (s *StatusServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "run ledger not configured")
		return
	}
	filter := store.RunFilter{Command: r.URL.Query().Get("command")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	runs, err := s.ledger.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun handles GET /v1/runs/{id}. The id "latest" returns the most
// recent run held in memory, which works without a ledger.
func (s *StatusServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "latest" {
		latest, _ := s.Latest()
		if latest == nil {
			writeError(w, http.StatusNotFound, "no run has finished yet")
			return
		}
		writeJSON(w, http.StatusOK, latest)
		return
	}
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "run ledger not configured")
		return
	}
	run, err := s.ledger.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleGetPointers handles GET /v1/pointers.
func (s *StatusServer) handleGetPointers(w http.ResponseWriter, r *http.Request) {
	entries, err := s.pointers.Pointers(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to read master meta: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
