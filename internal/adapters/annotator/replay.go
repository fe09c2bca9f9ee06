// Package annotator provides stand-ins for the video annotation service.
package annotator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/ingest"
	"github.com/okian/pitchside/pkg/logger"
)

// Replay answers annotation requests from a recording instead of calling the
// live service. A window gets its recorded reply when one exists; otherwise it
// gets every recorded match-level record whose absolute time lies in its span.
type Replay struct {
	mu      sync.RWMutex
	matchID string
	replies map[string][]byte
	records []model.RawEvent

	latency time.Duration
	logger  logger.Logger
}

// NewReplay returns an empty Replay for matchID.
func NewReplay(matchID string, opts ...Option) *Replay {
	r := &Replay{
		matchID: matchID,
		replies: make(map[string][]byte),
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("replay")
	return r
}

// Load reads a recording of the form
//
//	{"matchId": "...", "events": [...], "replies": {"<windowId>": [...]}}
//
// where both "events" and "replies" are optional.
func Load(payload []byte, opts ...Option) (*Replay, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidRecording)
	}
	doc := gjson.ParseBytes(payload)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: expected an object", ErrInvalidRecording)
	}
	r := NewReplay(doc.Get("matchId").String(), opts...)
	if events := doc.Get("events"); events.Exists() {
		if err := r.AddRecords([]byte(events.Raw)); err != nil {
			return nil, err
		}
	}
	var bad error
	doc.Get("replies").ForEach(func(key, value gjson.Result) bool {
		if !value.IsArray() && !value.IsObject() {
			bad = fmt.Errorf("%w: reply for window %s is not a list", ErrInvalidRecording, key.String())
			return false
		}
		r.SetReply(key.String(), []byte(value.Raw))
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return r, nil
}

// MatchID returns the match the recording belongs to.
func (r *Replay) MatchID() string { return r.matchID }

// AddRecords appends match-level records. Their times are absolute match seconds.
func (r *Replay) AddRecords(payload []byte) error {
	events, err := ingest.Decode(r.matchID, model.AnalysisWindow{}, payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecording, err)
	}
	r.mu.Lock()
	r.records = append(r.records, events...)
	r.mu.Unlock()
	return nil
}

// SetReply records the exact reply for one window.
func (r *Replay) SetReply(windowID string, payload []byte) {
	r.mu.Lock()
	r.replies[windowID] = append([]byte(nil), payload...)
	r.mu.Unlock()
}

// Len returns the number of match-level records.
func (r *Replay) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Annotate implements the annotator contract for window w.
func (r *Replay) Annotate(ctx context.Context, w model.AnalysisWindow) ([]model.RawEvent, error) {
	if r.latency > 0 {
		select {
		case <-time.After(r.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if reply, ok := r.replies[w.ID]; ok {
		events, err := ingest.Decode(r.matchID, w, reply)
		if err != nil {
			return nil, fmt.Errorf("%w: window %s: %w", ErrInvalidRecording, w.ID, err)
		}
		r.logger.Debug(ctx, "served recorded reply", logger.String("window", w.ID), logger.Int("events", len(events)))
		return events, nil
	}

	out := make([]model.RawEvent, 0)
	for _, ev := range r.records {
		if !w.Contains(ev.AbsoluteTimestamp) {
			continue
		}
		ev.WindowID = w.ID
		ev.RelativeTimestamp = math.Max(0, ev.AbsoluteTimestamp-w.AbsoluteStart)
		if ev.Position != nil {
			p := *ev.Position
			ev.Position = &p
		}
		out = append(out, ev)
	}
	r.logger.Debug(ctx, "served records in span", logger.String("window", w.ID), logger.Int("events", len(out)))
	return out, nil
}
