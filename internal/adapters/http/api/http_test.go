package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/pitchside/internal/adapters/http/api"
	"github.com/okian/pitchside/internal/adapters/repository"
	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const segmentsBody = `[{"id": "s1", "start": 0, "end": 100, "type": "active_play", "confidence": 0.9}]`

const analysisBody = `{
  "version": "v1",
  "segments": ` + segmentsBody + `,
  "events": [
    {"timestamp": 10, "type": "pass", "team": "home", "position": {"x": 0.3, "y": 0.5}, "confidence": 0.9},
    {"timestamp": 50, "type": "shot", "team": "home", "position": {"x": 0.9, "y": 0.5}, "confidence": 0.8}
  ],
  "tracks": {"tracks": [{"trackId": "p7", "team": "home", "frames": [{"t": 12, "center": {"x": 0.3, "y": 0.2}}]}]}
}`

func newMux(withStore bool) (*http.ServeMux, func()) {
	ctx := context.Background()
	opts := []service.Option{service.WithClock(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) })}
	cleanup := func() {}
	if withStore {
		store, err := repository.Open(ctx, repository.MemoryDSN)
		if err != nil {
			panic(err)
		}
		opts = append(opts, service.WithStore(store))
		cleanup = func() { _ = store.Close() }
	}
	svc, err := service.New(opts...)
	if err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc).Register(mux)
	return mux, cleanup
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given a registered server", t, func() {
		mux, cleanup := newMux(false)
		defer cleanup()

		Convey("Then health, metrics and stats respond", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ok"`)

			So(do(mux, http.MethodGet, "/metrics", "").Code, ShouldEqual, http.StatusOK)

			w = do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["runs"], ShouldEqual, float64(0))
		})

		Convey("Then unsupported methods are refused", func() {
			So(do(mux, http.MethodPost, "/healthz", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestPlanWindows(t *testing.T) {
	Convey("Given a registered server", t, func() {
		mux, cleanup := newMux(false)
		defer cleanup()

		Convey("When segments are posted", func() {
			w := do(mux, http.MethodPost, "/v1/windows", segmentsBody)

			Convey("Then the planned windows are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Windows []model.AnalysisWindow `json:"windows"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(len(resp.Windows), ShouldEqual, 2)
				So(resp.Windows[1].AbsoluteStart, ShouldEqual, 45)
				So(resp.Windows[1].AbsoluteEnd, ShouldEqual, 100)
			})
		})

		Convey("When the body is not a segment list", func() {
			w := do(mux, http.MethodPost, "/v1/windows", `{"nope": 1}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestAnalyses(t *testing.T) {
	Convey("Given a server backed by a store", t, func() {
		mux, cleanup := newMux(true)
		defer cleanup()

		w := do(mux, http.MethodPost, "/v1/matches/m1/analyses", analysisBody)
		So(w.Code, ShouldEqual, http.StatusCreated)
		var created model.Analysis
		So(json.Unmarshal(w.Body.Bytes(), &created), ShouldBeNil)

		Convey("Then the analysis reconciles the submitted events", func() {
			So(created.MatchID, ShouldEqual, "m1")
			So(created.Version, ShouldEqual, "v1")
			So(len(created.Events), ShouldEqual, 2)
			So(created.Events[1].MergedFromWindows, ShouldHaveLength, 1)
			So(created.Stats.Windows, ShouldEqual, 2)
		})

		Convey("Then a submitted ball trajectory orients a pass to an unplaced teammate", func() {
			body := `{
  "version": "v1",
  "segments": ` + segmentsBody + `,
  "events": [
    {"timestamp": 10, "type": "pass", "team": "home", "position": {"x": 0.3, "y": 0.5}, "confidence": 0.9},
    {"timestamp": 20, "type": "turnover", "team": "home", "confidence": 0.9}
  ],
  "ball": [{"frameNumber": 600, "timestamp": 20.1, "position": {"x": 0.7, "y": 0.5}, "confidence": 0.8}]
}`
			w := do(mux, http.MethodPost, "/v1/matches/m2/analyses", body)
			So(w.Code, ShouldEqual, http.StatusCreated)
			var a model.Analysis
			So(json.Unmarshal(w.Body.Bytes(), &a), ShouldBeNil)
			So(a.Events, ShouldHaveLength, 2)
			So(a.Events[0].Type, ShouldEqual, model.EventPass)
			So(a.Events[0].PassDirection, ShouldEqual, model.PassForward)
			So(a.Stats.Enriched["ball_assisted"], ShouldEqual, 1)
		})

		Convey("Then a malformed ball trajectory is refused", func() {
			body := `{"version": "v1", "segments": ` + segmentsBody + `, "ball": {"x": 1}}`
			So(do(mux, http.MethodPost, "/v1/matches/m3/analyses", body).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then it can be listed and read back", func() {
			w := do(mux, http.MethodGet, "/v1/matches/m1/analyses", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"version":"v1"`)

			w = do(mux, http.MethodGet, "/v1/matches/m1/analyses/latest", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got model.Analysis
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got.RunID, ShouldEqual, created.RunID)
		})

		Convey("Then resubmitting the version conflicts", func() {
			w := do(mux, http.MethodPost, "/v1/matches/m1/analyses", analysisBody)
			So(w.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("Then unknown versions are not found", func() {
			w := do(mux, http.MethodGet, "/v1/matches/m1/analyses/v9", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then invalid submissions are rejected", func() {
			So(do(mux, http.MethodPost, "/v1/matches/m1/analyses", `{"segments": []}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/v1/matches/m1/analyses", `[1]`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/v1/matches/m1/analyses",
				`{"version": "v2", "replies": {"missing": []}}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("Given a server without a store", t, func() {
		mux, cleanup := newMux(false)
		defer cleanup()

		Convey("Then reads fail as server errors", func() {
			w := do(mux, http.MethodGet, "/v1/matches/m1/analyses", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}
