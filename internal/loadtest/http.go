package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/pitchside/internal/domain/model"
)

const errorBodyLimit = 512

// submitOutcome classifies one submission.
type submitOutcome int

const (
	outcomeAccepted submitOutcome = iota
	outcomeConflict
	outcomeFailed
)

// httpClient talks to the pitchside API.
type httpClient struct {
	http    *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// submission is the POST body of a new analysis.
type submission struct {
	Version  string                 `json:"version"`
	Segments []model.TimeSegment    `json:"segments"`
	Windows  []model.AnalysisWindow `json:"windows"`
	Replies  map[string][]Detection `json:"replies"`
}

func (c *httpClient) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// submit posts one match and decodes the created analysis.
func (c *httpClient) submit(ctx context.Context, m Match, version string) (model.Analysis, submitOutcome, error) {
	body, err := json.Marshal(submission{
		Version:  version,
		Segments: m.Segments,
		Windows:  m.Windows,
		Replies:  m.Replies,
	})
	if err != nil {
		return model.Analysis{}, outcomeFailed, fmt.Errorf("marshal %s: %w", m.ID, err)
	}

	endpoint := c.baseURL + "/v1/matches/" + url.PathEscape(m.ID) + "/analyses"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return model.Analysis{}, outcomeFailed, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Analysis{}, outcomeFailed, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var a model.Analysis
		if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
			return model.Analysis{}, outcomeFailed, fmt.Errorf("decode analysis for %s: %w", m.ID, err)
		}
		return a, outcomeAccepted, nil
	case http.StatusConflict:
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.Analysis{}, outcomeConflict, nil
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return model.Analysis{}, outcomeFailed, fmt.Errorf("submit %s: status %d: %s", m.ID, resp.StatusCode, bytes.TrimSpace(msg))
	}
}
