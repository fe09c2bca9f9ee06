package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/pitchside/internal/adapters/annotator"
	"github.com/okian/pitchside/internal/adapters/mq/worker"
	"github.com/okian/pitchside/internal/adapters/repository"
	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/config"
	"github.com/okian/pitchside/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var auditTime = time.Date(2026, 5, 2, 19, 45, 0, 0, time.UTC)

func clock() time.Time { return auditTime }

// One 100s segment plans two windows, [0,60] and [45,100].
func segments() []model.TimeSegment {
	return []model.TimeSegment{{ID: "s1", StartSec: 0, EndSec: 100, Type: model.SegmentActivePlay, Confidence: 0.9}}
}

const records = `[
  {"timestamp": 10, "type": "pass", "team": "home", "position": {"x": 0.3, "y": 0.5}, "confidence": 0.9,
   "details": {"outcome": "complete", "endPosition": {"x": 0.45, "y": 0.4}}},
  {"timestamp": 50, "type": "shot", "team": "home", "position": {"x": 0.9, "y": 0.5}, "confidence": 0.8},
  {"timestamp": 80, "type": "tackle", "team": "away", "position": {"x": 0.4, "y": 0.6}, "confidence": 0.7,
   "details": {"outcome": "won"}}
]`

func replay() *annotator.Replay {
	r := annotator.NewReplay("m1")
	if err := r.AddRecords([]byte(records)); err != nil {
		panic(err)
	}
	return r
}

func newService(opts ...service.Option) *service.Service {
	s, err := service.New(append([]service.Option{service.WithClock(clock)}, opts...)...)
	if err != nil {
		panic(err)
	}
	return s
}

func TestRun(t *testing.T) {
	Convey("Given a service with a replay annotator and a store", t, func() {
		ctx := context.Background()
		store, err := repository.Open(ctx, repository.MemoryDSN)
		So(err, ShouldBeNil)
		defer store.Close()
		svc := newService(service.WithAnnotator(replay()), service.WithStore(store))

		Convey("When a version is run", func() {
			a, err := svc.Run(ctx, "m1", "v1", segments(), model.Tracking{})

			Convey("Then overlapping detections are merged into one timeline", func() {
				So(err, ShouldBeNil)
				So(a.Stats.Windows, ShouldEqual, 2)
				So(a.Stats.RawEvents, ShouldEqual, 4)
				So(a.Stats.Merged, ShouldEqual, 1)
				So(a.Stats.Canonical, ShouldEqual, 3)
				So(len(a.Events), ShouldEqual, 3)
				shot := a.Events[1]
				So(shot.Type, ShouldEqual, model.EventShot)
				So(shot.Contributors, ShouldEqual, 2)
				So(len(shot.MergedFromWindows), ShouldEqual, 2)
				So(shot.XG, ShouldNotBeNil)
				So(a.Events[2].Type, ShouldEqual, model.EventTurnover)
				So(a.CreatedAt.Equal(auditTime), ShouldBeTrue)
				So(a.RunID, ShouldNotBeBlank)
				So(len(a.Tactics.Teams), ShouldBeGreaterThanOrEqualTo, 2)
			})

			Convey("And the analysis is stored under its version", func() {
				got, err := svc.Get(ctx, "m1", "v1")
				So(err, ShouldBeNil)
				So(got.RunID, ShouldEqual, a.RunID)
				latest, err := svc.Get(ctx, "m1", service.LatestVersion)
				So(err, ShouldBeNil)
				So(latest.Version, ShouldEqual, "v1")
				versions, err := svc.Versions(ctx, "m1")
				So(err, ShouldBeNil)
				So(len(versions), ShouldEqual, 1)
				So(versions[0].Events, ShouldEqual, 3)
			})

			Convey("And running the same version again is refused", func() {
				_, err := svc.Run(ctx, "m1", "v1", segments(), model.Tracking{})
				So(errors.Is(err, service.ErrDuplicateRun), ShouldBeTrue)
			})

			Convey("And a new version is computed fresh", func() {
				b, err := svc.Run(ctx, "m1", "v2", segments(), model.Tracking{})
				So(err, ShouldBeNil)
				So(b.RunID, ShouldNotEqual, a.RunID)
				So(len(b.Events), ShouldEqual, 3)
				So(b.Events[1].ID, ShouldEqual, a.Events[1].ID)
				versions, _ := svc.Versions(ctx, "m1")
				So(len(versions), ShouldEqual, 2)
			})

			Convey("And the stats reflect the run", func() {
				stats := svc.GetStats()
				So(stats["runs"], ShouldEqual, 1)
				So(stats["lastVersion"], ShouldEqual, "v1")
				So(stats["store"], ShouldEqual, true)
			})
		})
	})
}

func TestRunFailure(t *testing.T) {
	Convey("Given an annotator that fails until it is fixed", t, func() {
		ctx := context.Background()
		var healthy atomic.Bool
		rep := replay()
		flaky := worker.AnnotatorFunc(func(ctx context.Context, w model.AnalysisWindow) ([]model.RawEvent, error) {
			if !healthy.Load() && w.Index == 1 {
				return nil, errors.New("model unavailable")
			}
			return rep.Annotate(ctx, w)
		})
		svc := newService(service.WithAnnotator(flaky))

		_, err := svc.Run(ctx, "m1", "v1", segments(), model.Tracking{})

		Convey("Then the whole run fails", func() {
			So(errors.Is(err, service.ErrRunFailed), ShouldBeTrue)
			So(errors.Is(err, worker.ErrAnnotate), ShouldBeTrue)
			So(svc.GetStats()["failedRuns"], ShouldEqual, 1)
		})

		Convey("When the same version is retried after recovery", func() {
			healthy.Store(true)
			a, err := svc.Run(ctx, "m1", "v1", segments(), model.Tracking{})

			Convey("Then every window is dispatched again", func() {
				So(err, ShouldBeNil)
				So(a.Stats.RawEvents, ShouldEqual, 4)
			})
		})
	})
}

func TestReconcile(t *testing.T) {
	Convey("Given raw events reported by two windows", t, func() {
		ctx := context.Background()
		svc := newService()
		svc2 := newService()
		windows, _ := svc.Plan(ctx, segments())
		So(len(windows), ShouldEqual, 2)

		raw := []model.RawEvent{
			{WindowID: windows[0].ID, AbsoluteTimestamp: 50, RelativeTimestamp: 50, Type: model.EventShot, Team: "home", Confidence: 0.8},
			{WindowID: windows[1].ID, AbsoluteTimestamp: 51, RelativeTimestamp: 6, Type: model.EventShot, Team: "home", Confidence: 0.7},
			{WindowID: windows[0].ID, AbsoluteTimestamp: 20, RelativeTimestamp: 20, Type: model.EventPass, Team: "away", Confidence: 0.9},
			{WindowID: windows[1].ID, AbsoluteTimestamp: 70, RelativeTimestamp: 25, Type: "foul", Team: "away", Confidence: 0.9},
		}
		reversed := []model.RawEvent{raw[3], raw[2], raw[1], raw[0]}

		a, err := svc.Reconcile(ctx, service.Request{MatchID: "m1", Version: "v1", Segments: segments(), Windows: windows, Events: raw})
		So(err, ShouldBeNil)
		b, err := svc2.Reconcile(ctx, service.Request{MatchID: "m1", Version: "v1", Segments: segments(), Windows: windows, Events: reversed})
		So(err, ShouldBeNil)

		Convey("Then malformed events are dropped and counted", func() {
			So(a.Stats.Dropped["type_oneof"], ShouldEqual, 1)
			So(a.Stats.Canonical, ShouldEqual, 2)
			So(a.Events[1].MatchID, ShouldEqual, "m1")
		})

		Convey("Then arrival order does not change the output", func() {
			ja, _ := json.Marshal(a.Events)
			jb, _ := json.Marshal(b.Events)
			So(string(ja), ShouldEqual, string(jb))
			ta, _ := json.Marshal(a.Timeline)
			tb, _ := json.Marshal(b.Timeline)
			So(string(ta), ShouldEqual, string(tb))
		})

		Convey("Then windows are planned when only segments are given", func() {
			c, err := svc.Reconcile(ctx, service.Request{MatchID: "m1", Version: "v2", Segments: segments(), Events: raw})
			So(err, ShouldBeNil)
			So(len(c.Windows), ShouldEqual, 2)
			So(c.Stats.Canonical, ShouldEqual, 2)
		})
	})
}

func TestServiceErrors(t *testing.T) {
	Convey("Given a service without collaborators", t, func() {
		ctx := context.Background()
		svc := newService()

		Convey("Then requests without a usable key are rejected", func() {
			_, err := svc.Reconcile(ctx, service.Request{Version: "v1"})
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
			_, err = svc.Reconcile(ctx, service.Request{MatchID: "m1", Version: service.LatestVersion})
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
		})

		Convey("Then Run needs an annotator and reads need a store", func() {
			_, err := svc.Run(ctx, "m1", "v1", segments(), model.Tracking{})
			So(errors.Is(err, service.ErrNoAnnotator), ShouldBeTrue)
			_, err = svc.Get(ctx, "m1", "v1")
			So(errors.Is(err, service.ErrNoStore), ShouldBeTrue)
			_, err = svc.Versions(ctx, "m1")
			So(errors.Is(err, service.ErrNoStore), ShouldBeTrue)
		})

		Convey("Then empty input still yields a default analysis", func() {
			a, err := svc.Reconcile(ctx, service.Request{MatchID: "m1", Version: "v1"})
			So(err, ShouldBeNil)
			So(a.Events, ShouldBeEmpty)
			So(len(a.Timeline.Teams), ShouldEqual, 2)
		})
	})

	Convey("Given an invalid configuration", t, func() {
		cfg := config.New()
		cfg.Window.OverlapSec = cfg.Window.LengthSec
		_, err := service.New(service.WithConfig(*cfg))

		Convey("Then construction fails", func() {
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
