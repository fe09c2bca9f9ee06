package api

import (
	"net/http"

	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/domain/window"
	"github.com/okian/pitchside/internal/ingest"
)

type windowsResponse struct {
	Windows []model.AnalysisWindow `json:"windows"`
	Stats   window.Stats           `json:"stats"`
}

// HandlePlanWindows handles POST /v1/windows. The body is a list of segments
// or an object with a "segments" list.
func (s *Server) HandlePlanWindows(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	segments, err := ingest.DecodeSegments(body)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	windows, stats := s.deps.Plan(r.Context(), segments)
	if windows == nil {
		windows = []model.AnalysisWindow{}
	}
	writeJSON(w, http.StatusOK, windowsResponse{Windows: windows, Stats: stats})
}
