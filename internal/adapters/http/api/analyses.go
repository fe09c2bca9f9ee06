package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/ingest"
)

type versionsResponse struct {
	MatchID  string              `json:"matchId"`
	Versions []model.VersionInfo `json:"versions"`
}

// HandleCreateAnalysis handles POST /v1/matches/{matchId}/analyses.
//
// The body carries "version" and "segments", plus optional "windows" (planned
// from the segments when absent), "replies" keyed by window id, match-level
// "events" attributed to the windows that contain them, "tracks" and "ball".
func (s *Server) HandleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	req, err := s.submission(r.Context(), r.PathValue("matchId"), body)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	a, err := s.deps.Reconcile(r.Context(), req)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// HandleListVersions handles GET /v1/matches/{matchId}/analyses.
func (s *Server) HandleListVersions(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("matchId")
	versions, err := s.deps.Versions(r.Context(), matchID)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, versionsResponse{MatchID: matchID, Versions: versions})
}

// HandleGetAnalysis handles GET /v1/matches/{matchId}/analyses/{version}.
// The version "latest" returns the most recently stored one.
func (s *Server) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Get(r.Context(), r.PathValue("matchId"), r.PathValue("version"))
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) submission(ctx context.Context, matchID string, body []byte) (service.Request, error) {
	if !gjson.ValidBytes(body) {
		return service.Request{}, fmt.Errorf("%w: malformed JSON", ErrBadRequest)
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return service.Request{}, fmt.Errorf("%w: expected an object", ErrBadRequest)
	}
	req := service.Request{MatchID: matchID, Version: doc.Get("version").String()}

	if v := doc.Get("segments"); v.Exists() {
		segments, err := ingest.DecodeSegments([]byte(v.Raw))
		if err != nil {
			return service.Request{}, fmt.Errorf("segments: %w", err)
		}
		req.Segments = segments
	}
	if v := doc.Get("windows"); v.Exists() {
		if err := json.Unmarshal([]byte(v.Raw), &req.Windows); err != nil {
			return service.Request{}, fmt.Errorf("%w: windows: %w", ErrBadRequest, err)
		}
	} else {
		req.Windows, _ = s.deps.Plan(ctx, req.Segments)
	}

	byID := make(map[string]model.AnalysisWindow, len(req.Windows))
	for _, win := range req.Windows {
		byID[win.ID] = win
	}
	var events []model.RawEvent
	if v := doc.Get("replies"); v.Exists() {
		if !v.IsObject() {
			return service.Request{}, fmt.Errorf("%w: replies must be keyed by window id", ErrBadRequest)
		}
		var bad error
		v.ForEach(func(key, reply gjson.Result) bool {
			win, ok := byID[key.String()]
			if !ok {
				bad = fmt.Errorf("%w: reply for unknown window %q", ErrBadRequest, key.String())
				return false
			}
			decoded, err := ingest.Decode(matchID, win, []byte(reply.Raw))
			if err != nil {
				bad = fmt.Errorf("reply for window %q: %w", key.String(), err)
				return false
			}
			events = append(events, decoded...)
			return true
		})
		if bad != nil {
			return service.Request{}, bad
		}
	}
	if v := doc.Get("events"); v.Exists() {
		decoded, err := ingest.Decode(matchID, model.AnalysisWindow{}, []byte(v.Raw))
		if err != nil {
			return service.Request{}, fmt.Errorf("events: %w", err)
		}
		events = append(events, ingest.Assign(decoded, req.Windows)...)
	}
	req.Events = events

	tracking, err := ingest.DecodeTracking(body, ingest.WithLogger(s.logger))
	if err != nil {
		return service.Request{}, fmt.Errorf("tracking: %w", err)
	}
	req.Tracks, req.Ball = tracking.Players, tracking.Ball
	return req, nil
}
