package simd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/inheritance-core/internal/export"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/logger"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServer struct {
	mux      *http.ServeMux
	store    *RunStore
	Executor *RunExecutor
	limiter  *ClientLimiter
}

func NewHTTPServer(store *RunStore, executor *RunExecutor) *HTTPServer {
	s := &HTTPServer{
		mux:      http.NewServeMux(),
		store:    store,
		Executor: executor,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/v1/runs", s.handleRuns)
	s.mux.HandleFunc("/v1/runs/", s.handleRunByID)

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

// SetRateLimiter limits run creation and start requests per client.
// A nil limiter disables limiting.
func (s *HTTPServer) SetRateLimiter(l *ClientLimiter) {
	s.limiter = l
}

// allow rejects the request with 429 when the client is over its rate.
func (s *HTTPServer) allow(w http.ResponseWriter, r *http.Request) bool {
	client := clientAddr(r)
	if s.limiter.Allow(client, time.Now()) {
		return true
	}
	logger.Warn("request rate limited", "client", client, "path", r.URL.Path)
	w.Header().Set("Retry-After", "1")
	s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	return false
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"active_runs": s.Executor.ActiveRuns(),
	})
}

// handleRuns handles /v1/runs endpoint
func (s *HTTPServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateRun(w, r)
	case http.MethodGet:
		s.handleListRuns(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleRunByID handles /v1/runs/{id} and related endpoints:
// {id}:start, {id}:stop, {id}/results and {id}/export.
func (s *HTTPServer) handleRunByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	type route struct {
		suffix  string
		method  string
		handler func(http.ResponseWriter, *http.Request, string)
	}
	routes := []route{
		{":start", http.MethodPost, s.handleStartRun},
		{":stop", http.MethodPost, s.handleStopRun},
		{"/results", http.MethodGet, s.handleGetResults},
		{"/export", http.MethodGet, s.handleExportRun},
	}
	for _, rt := range routes {
		if !strings.HasSuffix(path, rt.suffix) {
			continue
		}
		if r.Method != rt.method {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rt.handler(w, r, strings.TrimSuffix(path, rt.suffix))
		return
	}

	if strings.Contains(path, "/") {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.handleGetRun(w, r, path)
}

// handleCreateRun handles POST /v1/runs
func (s *HTTPServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r) {
		return
	}

	var req struct {
		RunID string    `json:"run_id,omitempty"`
		Input *RunInput `json:"input"`
		Start bool      `json:"start,omitempty"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Input == nil {
		req.Input = &RunInput{}
	}

	rec, err := s.store.Create(req.RunID, req.Input)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	logger.ForRun(rec.Run.ID).Info("run created (HTTP)")

	if req.Start {
		if rec, err = s.Executor.Start(rec.Run.ID); err != nil {
			s.writeRunError(w, err)
			return
		}
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"run": runToMap(rec),
	})
}

// handleListRuns handles GET /v1/runs with pagination and status filtering
func (s *HTTPServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = min(parsed, 1000)
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	statusFilter := models.RunStatusUnspecified
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		statusFilter = models.ParseRunStatus(statusStr)
		if statusFilter == models.RunStatusUnspecified {
			s.writeError(w, http.StatusBadRequest, "unknown status: "+statusStr)
			return
		}
	}

	runs := s.store.ListFiltered(limit, offset, statusFilter)
	runsJSON := make([]map[string]any, 0, len(runs))
	for _, rec := range runs {
		runsJSON = append(runsJSON, runToMap(rec))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs": runsJSON,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(runs),
		},
	})
}

// handleGetRun handles GET /v1/runs/{id}
func (s *HTTPServer) handleGetRun(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": runToMap(rec),
	})
}

// handleStartRun handles POST /v1/runs/{id}:start
func (s *HTTPServer) handleStartRun(w http.ResponseWriter, r *http.Request, runID string) {
	if !s.allow(w, r) {
		return
	}

	updated, err := s.Executor.Start(runID)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	logger.ForRun(runID).Info("run started (HTTP)")
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": runToMap(updated),
	})
}

// handleStopRun handles POST /v1/runs/{id}:stop
func (s *HTTPServer) handleStopRun(w http.ResponseWriter, _ *http.Request, runID string) {
	updated, err := s.Executor.Stop(runID)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": runToMap(updated),
	})
}

// handleGetResults handles GET /v1/runs/{id}/results
func (s *HTTPServer) handleGetResults(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if rec.Result == nil {
		s.writeError(w, http.StatusPreconditionFailed, ErrResultsNotReady.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, resultsToMap(rec))
}

// handleExportRun handles GET /v1/runs/{id}/export?format=csv|json
func (s *HTTPServer) handleExportRun(w http.ResponseWriter, r *http.Request, runID string) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if rec.Result == nil {
		s.writeError(w, http.StatusPreconditionFailed, ErrResultsNotReady.Error())
		return
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", runID+"."+format))
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, format, rec.Result, rec.Summary); err != nil {
		logger.ForRun(runID).Error("failed to write export", "format", format, "error", err)
	}
}

// Helper functions

func (s *HTTPServer) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRunNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrRunExists):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrRunTerminal):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrRunIDMissing), errors.Is(err, ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
