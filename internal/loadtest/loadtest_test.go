package loadtest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pitchside/internal/adapters/annotator"
	"github.com/okian/pitchside/internal/adapters/http/api"
	"github.com/okian/pitchside/internal/adapters/repository"
	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/loadtest"
)

func planner() *service.Service {
	svc, err := service.New()
	if err != nil {
		panic(err)
	}
	return svc
}

func smallConfig() loadtest.Config {
	cfg := loadtest.DefaultConfig()
	cfg.Matches = 3
	cfg.Workers = 2
	cfg.SegmentsPerMatch = 3
	cfg.Version = "v1"
	return cfg
}

func TestGenerate(t *testing.T) {
	Convey("Given the generator", t, func() {
		ctx := context.Background()
		cfg := smallConfig()

		Convey("When a match is generated twice from one seed", func() {
			a, err := loadtest.Generate(ctx, planner(), "m1", cfg, 7)
			So(err, ShouldBeNil)
			b, err := loadtest.Generate(ctx, planner(), "m1", cfg, 7)
			So(err, ShouldBeNil)

			Convey("Then both are identical", func() {
				So(len(a.Truth), ShouldBeGreaterThan, 0)
				So(a.Truth, ShouldResemble, b.Truth)
				So(a.Detections(), ShouldEqual, b.Detections())
			})

			Convey("Then overlapping windows report actions more than once", func() {
				So(len(a.Segments), ShouldEqual, 3)
				So(len(a.Windows), ShouldBeGreaterThan, len(a.Segments))
				So(a.Detections(), ShouldBeGreaterThan, len(a.Truth))
			})
		})

		Convey("When the shape is unusable", func() {
			bad := cfg
			bad.JitterSec = 2
			_, err := loadtest.Generate(ctx, planner(), "m1", bad, 1)
			So(errors.Is(err, loadtest.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestReplayRecovery(t *testing.T) {
	Convey("Given a synthetic recording replayed through the pipeline", t, func() {
		ctx := context.Background()
		cfg := smallConfig()
		m, err := loadtest.Generate(ctx, planner(), "m1", cfg, 42)
		So(err, ShouldBeNil)

		payload, err := json.Marshal(m.Recording())
		So(err, ShouldBeNil)
		replay, err := annotator.Load(payload)
		So(err, ShouldBeNil)

		svc, err := service.New(service.WithAnnotator(replay))
		So(err, ShouldBeNil)

		Convey("When the match is run", func() {
			a, err := svc.Run(ctx, "m1", "v1", m.Segments, model.Tracking{})
			So(err, ShouldBeNil)

			Convey("Then every action is recovered exactly once", func() {
				So(loadtest.Verify(m, a, cfg.JitterSec+1e-6), ShouldBeNil)
				So(a.Stats.Merged, ShouldBeGreaterThan, 0)
			})

			Convey("And a dropped event is reported as a mismatch", func() {
				a.Events = a.Events[1:]
				So(errors.Is(loadtest.Verify(m, a, cfg.JitterSec), loadtest.ErrMismatch), ShouldBeTrue)
			})
		})
	})
}

func newServer() (*httptest.Server, func()) {
	ctx := context.Background()
	store, err := repository.Open(ctx, repository.MemoryDSN)
	if err != nil {
		panic(err)
	}
	svc, err := service.New(service.WithStore(store))
	if err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc).Register(mux)
	srv := httptest.NewServer(mux)
	return srv, func() {
		srv.Close()
		_ = store.Close()
	}
}

func TestRunner(t *testing.T) {
	Convey("Given a running server", t, func() {
		ctx := context.Background()
		srv, stop := newServer()
		defer stop()

		cfg := smallConfig()
		cfg.BaseURL = srv.URL
		r, err := loadtest.NewRunner(cfg, planner(), loadtest.WithHTTPClient(srv.Client()))
		So(err, ShouldBeNil)

		Convey("When the load test runs", func() {
			stats, err := r.Run(ctx)

			Convey("Then every match is stored and verified", func() {
				So(err, ShouldBeNil)
				So(stats.MatchesGenerated, ShouldEqual, 3)
				So(stats.Submitted, ShouldEqual, 3)
				So(stats.Verified, ShouldEqual, 3)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Detections, ShouldBeGreaterThan, stats.Actions)
			})

			Convey("And a rerun of the same version conflicts without failing", func() {
				stats, err := r.Run(ctx)
				So(err, ShouldBeNil)
				So(stats.Conflicts, ShouldEqual, 3)
				So(stats.Verified, ShouldEqual, 0)
			})
		})
	})

	Convey("Given an unhealthy server", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		cfg := smallConfig()
		cfg.BaseURL = srv.URL
		r, err := loadtest.NewRunner(cfg, planner())
		So(err, ShouldBeNil)

		_, err = r.Run(context.Background())
		So(errors.Is(err, loadtest.ErrUnhealthy), ShouldBeTrue)
	})

	Convey("Given invalid runner settings", t, func() {
		cfg := smallConfig()
		cfg.Version = ""
		_, err := loadtest.NewRunner(cfg, planner())
		So(errors.Is(err, loadtest.ErrInvalidConfig), ShouldBeTrue)

		cfg = smallConfig()
		cfg.Workers = 0
		_, err = loadtest.NewRunner(cfg, planner())
		So(errors.Is(err, loadtest.ErrInvalidConfig), ShouldBeTrue)
	})
}
