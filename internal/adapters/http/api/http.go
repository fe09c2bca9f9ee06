// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/pitchside/internal/adapters/repository"
	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/domain/window"
	"github.com/okian/pitchside/internal/ingest"
	"github.com/okian/pitchside/pkg/logger"
)

const defaultMaxBodyBytes = 32 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the pipeline implementation.
type Dependencies interface {
	StatsProvider

	Plan(ctx context.Context, segments []model.TimeSegment) ([]model.AnalysisWindow, window.Stats)
	Reconcile(ctx context.Context, req service.Request) (model.Analysis, error)
	Get(ctx context.Context, matchID, version string) (model.Analysis, error)
	Versions(ctx context.Context, matchID string) ([]model.VersionInfo, error)
}

// Server wires HTTP routes for the analysis API.
type Server struct {
	deps    Dependencies
	stats   *StatsHandler
	maxBody int64
	logger  logger.Logger
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:    deps,
		stats:   NewStatsHandler(deps),
		maxBody: defaultMaxBodyBytes,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("api")
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(HandleHealth, "healthz"))
	mux.Handle("GET /metrics", MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.stats.HandleStats, "stats"))
	mux.HandleFunc("POST /v1/windows", MetricsMiddleware(s.HandlePlanWindows, "windows"))
	mux.HandleFunc("POST /v1/matches/{matchId}/analyses", MetricsMiddleware(s.HandleCreateAnalysis, "analyses"))
	mux.HandleFunc("GET /v1/matches/{matchId}/analyses", MetricsMiddleware(s.HandleListVersions, "analyses"))
	mux.HandleFunc("GET /v1/matches/{matchId}/analyses/{version}", MetricsMiddleware(s.HandleGetAnalysis, "analysis"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps pipeline errors onto HTTP statuses.
func (s *Server) fail(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, ingest.ErrInvalidPayload),
		errors.Is(err, repository.ErrInvalidAnalysis):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrVersionExists), errors.Is(err, service.ErrDuplicateRun):
		writeError(w, http.StatusConflict, "conflict", err)
	default:
		s.logger.Error(ctx, "request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrBadRequest, err)
	}
	return body, nil
}
