// Package api exposes the radar engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/STRATINT/radar/internal/models"
	"github.com/STRATINT/radar/internal/radar"
	"github.com/STRATINT/radar/internal/registry"
)

const maxBodyBytes = 1 << 20

// Engine is the part of *radar.Engine the handlers use.
type Engine interface {
	RunCycle(ctx context.Context, req radar.CycleRequest) (models.CycleResult, error)
	Sources() []radar.SourceStatus
	Source(id string) (radar.SourceStatus, error)
	Compare(id1, id2 string) (registry.Comparison, error)
	Has(id string) bool
	Health() radar.HealthReport
	Capabilities() radar.Capabilities
}

// Handler serves the radar endpoints.
type Handler struct {
	engine Engine
	logger *slog.Logger
}

// NewHandler creates a handler backed by engine.
func NewHandler(engine Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// SourcesResponse lists catalog entries with their cached versions.
type SourcesResponse struct {
	Total   int                  `json:"total"`
	Sources []radar.SourceStatus `json:"sources"`
}

// HealthResponse wraps the engine health report.
type HealthResponse struct {
	Module string `json:"module"`
	radar.HealthReport
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Analyze handles POST /api/radar/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AnalyzeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	caps := h.engine.Capabilities()
	if err := ValidateAnalyzeRequest(req, h.engine.Has, caps.SupportedSources); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.engine.RunCycle(r.Context(), radar.CycleRequest{
		Sources:   req.Sources,
		Deep:      req.Deep,
		Summarize: req.Summarize,
		Trigger:   radar.TriggerManual,
	})
	if err != nil {
		h.logger.Error("radar cycle failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// ListSources handles GET /api/radar/sources
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sources := h.engine.Sources()
	h.writeJSON(w, http.StatusOK, SourcesResponse{Total: len(sources), Sources: sources})
}

// GetSource handles GET /api/radar/sources/{id}
func (h *Handler) GetSource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/radar/sources/"), "/")
	if id == "" {
		http.Error(w, "Source ID required", http.StatusBadRequest)
		return
	}

	status, err := h.engine.Source(id)
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.logger.Error("failed to describe source", "source", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, status)
}

// Compare handles POST /api/radar/compare
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CompareRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := ValidateCompareRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	comparison, err := h.engine.Compare(req.Source1, req.Source2)
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.logger.Error("failed to compare sources", "source1", req.Source1, "source2", req.Source2, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, comparison)
}

// Health handles GET /api/radar/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report := h.engine.Health()
	status := http.StatusOK
	if report.Status == radar.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, HealthResponse{Module: "radar", HealthReport: report})
}

// Capabilities handles GET /api/radar/capabilities
func (h *Handler) Capabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, h.engine.Capabilities())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var verr ValidationError
	if errors.As(err, &verr) {
		resp = errorResponse{Error: verr.Message, Field: verr.Field}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// decodeBody reads a JSON body. An empty body leaves v at its zero value and
// unrecognised fields are ignored.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}
