package enrich_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/pitchside/internal/domain/enrich"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/domain/pitch"
	. "github.com/smartystreets/goconvey/convey"
)

func event(id string, typ model.EventType, team string, ts float64, pos *model.Position) model.CanonicalEvent {
	return model.CanonicalEvent{
		ID:                 id,
		Type:               typ,
		Team:               team,
		AbsoluteTimestamp:  ts,
		Position:           pos,
		Confidence:         0.8,
		AdjustedConfidence: 0.8,
		Contributors:       1,
	}
}

func at(x, y float64) *model.Position { return &model.Position{X: x, Y: y} }

func byID(events []model.EnrichedEvent, id string) model.EnrichedEvent {
	for _, e := range events {
		if e.ID == id {
			return e
		}
	}
	return model.EnrichedEvent{}
}

func TestPassDirection(t *testing.T) {
	Convey("Given passes followed by same-team events", t, func() {
		in := []model.CanonicalEvent{
			event("fwd", model.EventPass, "home", 10, at(0.30, 0.5)),
			event("opp", model.EventPass, "away", 11, at(0.10, 0.5)),
			event("fwd-next", model.EventCarry, "home", 12, at(0.45, 0.5)),
			event("back", model.EventPass, "home", 20, at(0.50, 0.5)),
			event("back-next", model.EventPass, "home", 21, at(0.35, 0.5)),
			event("lat", model.EventPass, "home", 30, at(0.50, 0.2)),
			event("lat-next", model.EventPass, "home", 31, at(0.55, 0.8)),
			event("away-fwd", model.EventPass, "away", 40, at(0.60, 0.5)),
			event("away-next", model.EventPass, "away", 41, at(0.45, 0.5)),
			event("blind", model.EventPass, "home", 50, at(0.50, 0.5)),
			event("blind-next", model.EventTurnover, "home", 51, nil),
			event("nopos", model.EventPass, "home", 60, nil),
			event("last", model.EventPass, "home", 70, at(0.50, 0.5)),
		}

		Convey("When enriched", func() {
			out := enrich.Enrich(in)

			Convey("Then displacement along the attack axis decides the direction", func() {
				So(byID(out, "fwd").PassDirection, ShouldEqual, model.PassForward)
				So(byID(out, "back").PassDirection, ShouldEqual, model.PassBackward)
				So(byID(out, "lat").PassDirection, ShouldEqual, model.PassLateral)
			})

			Convey("And the away team attacks towards X=0", func() {
				So(byID(out, "away-fwd").PassDirection, ShouldEqual, model.PassForward)
			})

			Convey("And a missing next position means lateral", func() {
				So(byID(out, "blind").PassDirection, ShouldEqual, model.PassLateral)
				So(byID(out, "last").PassDirection, ShouldEqual, model.PassLateral)
			})

			Convey("And a pass without its own position gets no direction", func() {
				So(byID(out, "nopos").PassDirection, ShouldEqual, model.PassDirection(""))
			})
		})
	})
}

func TestCarryAndDribble(t *testing.T) {
	Convey("Given carries with and without an end", t, func() {
		long := event("long", model.EventCarry, "home", 10, at(0.2, 0.5))
		long.Details.EndPosition = at(0.4, 0.5)
		long.Details.DurationSec = model.Float64Ptr(4)

		short := event("short", model.EventCarry, "home", 20, at(0.5, 0.5))
		short.Details.EndPosition = at(0.52, 0.5)
		short.Details.DurationSec = model.Float64Ptr(1)

		zoned := event("zoned", model.EventCarry, "home", 30, at(0.5, 0.5))
		zoned.Details.EndZone = "attacking_third"

		awayZoned := event("away-zoned", model.EventCarry, "away", 35, at(0.5, 0.5))
		awayZoned.Details.EndZone = "attacking_third"

		open := event("open", model.EventCarry, "home", 40, at(0.5, 0.5))

		out, stats := enrich.Default().Enrich(context.Background(), []model.CanonicalEvent{open, zoned, awayZoned, short, long})

		Convey("Then carry distance uses the end position", func() {
			So(*byID(out, "long").CarryDistanceMeters, ShouldAlmostEqual, 21, 1e-9)
		})

		Convey("And falls back to the end-zone centre in the team's direction", func() {
			So(*byID(out, "zoned").CarryDistanceMeters, ShouldAlmostEqual, 35, 1e-9)
			So(*byID(out, "away-zoned").CarryDistanceMeters, ShouldAlmostEqual, 35, 1e-9)
		})

		Convey("And is omitted without any end", func() {
			So(byID(out, "open").CarryDistanceMeters, ShouldBeNil)
			So(byID(out, "open").IsDribble, ShouldBeNil)
		})

		Convey("And a long, slow, progressive carry is a strong dribble", func() {
			ev := byID(out, "long")
			So(*ev.IsDribble, ShouldBeTrue)
			So(ev.DribbleStrength, ShouldEqual, model.DribbleStrong)
			So(*ev.DribbleScore, ShouldAlmostEqual, 1.0, 1e-9)
			So(*ev.DribbleConfidence, ShouldAlmostEqual, 0.95, 1e-9)
		})

		Convey("And a short quick carry is a simple carry", func() {
			ev := byID(out, "short")
			So(*ev.IsDribble, ShouldBeFalse)
			So(ev.DribbleStrength, ShouldEqual, model.DribbleNone)
			So(*ev.DribbleScore, ShouldBeLessThan, 0.35)
			So(*ev.DribbleConfidence, ShouldBeBetween, 0.6, 0.9)
		})

		Convey("And stats count populated fields", func() {
			So(stats.Events, ShouldEqual, 5)
			So(stats.Fields[enrich.FieldCarryDistance], ShouldEqual, 4)
			So(stats.Fields[enrich.FieldDribble], ShouldEqual, 4)
		})

		Convey("And output follows the timeline", func() {
			So(out[0].ID, ShouldEqual, "long")
			So(out[4].ID, ShouldEqual, "open")
		})
	})
}

func TestDribbleConfidenceContinuity(t *testing.T) {
	Convey("Given the default dribble bands", t, func() {
		d := enrich.DefaultConfig().Dribble

		Convey("Then confidence barely moves across each threshold", func() {
			for _, th := range []float64{d.WeakThreshold, d.ModerateThreshold, d.StrongThreshold} {
				below := d.Classify(th - 1e-6)
				above := d.Classify(th + 1e-6)
				diff := above.Confidence - below.Confidence
				if diff < 0 {
					diff = -diff
				}
				So(diff, ShouldBeLessThan, 0.05)
			}
		})

		Convey("Then bands match their documented ranges", func() {
			So(d.Classify(1).Confidence, ShouldAlmostEqual, 0.95, 1e-9)
			So(d.Classify(0.7).Confidence, ShouldAlmostEqual, 0.85, 1e-9)
			So(d.Classify(0.6).Strength, ShouldEqual, model.DribbleModerate)
			So(d.Classify(0.4).Strength, ShouldEqual, model.DribbleWeak)
			So(d.Classify(0.4).IsDribble, ShouldBeTrue)
			So(d.Classify(0.2).IsDribble, ShouldBeFalse)
			So(d.Classify(0.1).Confidence, ShouldBeGreaterThan, d.Classify(0.3).Confidence)
		})

		Convey("Then sweeping the score never jumps", func() {
			prev := d.Classify(0).Confidence
			for s := 0.001; s <= 1.0; s += 0.001 {
				c := d.Classify(s).Confidence
				diff := c - prev
				if diff < 0 {
					diff = -diff
				}
				So(diff, ShouldBeLessThan, 0.05)
				prev = c
			}
		})
	})
}

func TestExpectedGoals(t *testing.T) {
	Convey("Given shots", t, func() {
		e := enrich.Default()
		shot := func(id, team string, pos *model.Position, technique string) model.CanonicalEvent {
			ev := event(id, model.EventShot, team, 100, pos)
			ev.Details.Technique = technique
			return ev
		}

		Convey("When the shot is a penalty", func() {
			pen := shot("pen", "home", at(0.89, 0.5), model.TechniquePenalty)
			spot := shot("spot", "away", nil, "")
			spot.Details.SetPieceType = model.SetPiecePenalty
			out, _ := e.Enrich(context.Background(), []model.CanonicalEvent{pen, spot})

			Convey("Then xG is exactly 0.76", func() {
				So(*byID(out, "pen").XG, ShouldEqual, 0.76)
				So(*byID(out, "spot").XG, ShouldEqual, 0.76)
				So(byID(out, "spot").XGFactors.Penalty, ShouldBeTrue)
			})
		})

		Convey("When shots are spread over the pitch", func() {
			var in []model.CanonicalEvent
			techniques := []string{"", model.TechniqueHeader, model.TechniqueVolley, model.TechniqueChip, model.TechniqueLongRange}
			n := 0
			for x := 0.0; x <= 1.0; x += 0.05 {
				for y := 0.0; y <= 1.0; y += 0.1 {
					for _, tech := range techniques {
						n++
						in = append(in, shot("g"+string(rune('a'+n%26))+string(rune('a'+n/26%26))+string(rune('a'+n/676)), "home", at(x, y), tech))
					}
				}
			}
			out, _ := e.Enrich(context.Background(), in)

			Convey("Then xG always lies in [0.01, 1]", func() {
				for _, ev := range out {
					So(ev.XG, ShouldNotBeNil)
					So(*ev.XG, ShouldBeBetweenOrEqual, 0.01, 1.0)
				}
			})
		})

		Convey("When a shot moves towards goal along the centre line", func() {
			Convey("Then xG never decreases", func() {
				prev := 0.0
				for x := 0.5; x <= 0.995; x += 0.01 {
					out := enrich.Enrich([]model.CanonicalEvent{shot("c", "home", at(x, 0.5), "")})
					So(*out[0].XG, ShouldBeGreaterThanOrEqualTo, prev)
					prev = *out[0].XG
				}
			})
		})

		Convey("When the shot is inside the goal area", func() {
			out := enrich.Enrich([]model.CanonicalEvent{
				shot("close", "home", at(0.97, 0.45), model.TechniqueHeader),
				shot("away-close", "away", at(0.03, 0.5), ""),
			})

			Convey("Then the goal-area floor applies for either direction", func() {
				So(*byID(out, "close").XG, ShouldBeGreaterThanOrEqualTo, 0.35)
				So(*byID(out, "away-close").XG, ShouldBeGreaterThanOrEqualTo, 0.35)
			})
		})

		Convey("When the shot is from far out", func() {
			out := enrich.Enrich([]model.CanonicalEvent{shot("far", "home", at(0.4, 0.5), "")})

			Convey("Then xG sits at the minimum", func() {
				So(*out[0].XG, ShouldAlmostEqual, 0.01, 1e-9)
				So(out[0].XGFactors.DistanceMeters, ShouldAlmostEqual, 63, 1e-9)
			})
		})

		Convey("When the same shot is a header", func() {
			out := enrich.Enrich([]model.CanonicalEvent{
				shot("foot", "home", at(0.8, 0.5), ""),
				shot("head", "home", at(0.8, 0.5), model.TechniqueHeader),
			})

			Convey("Then the header multiplier applies", func() {
				So(*byID(out, "head").XG, ShouldAlmostEqual, *byID(out, "foot").XG*0.8, 1e-9)
				So(byID(out, "head").XGFactors.TechniqueMultiplier, ShouldEqual, 0.8)
			})
		})

		Convey("When the shot has no position", func() {
			out := enrich.Enrich([]model.CanonicalEvent{shot("blind", "home", nil, "")})

			Convey("Then xG is omitted", func() {
				So(out[0].XG, ShouldBeNil)
				So(out[0].XGFactors, ShouldBeNil)
			})
		})
	})
}

func TestCounterAttacks(t *testing.T) {
	Convey("Given a won turnover followed by a shot five seconds later", t, func() {
		events := enrich.Enrich([]model.CanonicalEvent{
			event("t", model.EventTurnover, "home", 50.0, at(0.3, 0.5)),
			event("s", model.EventShot, "home", 55.0, at(0.85, 0.5)),
		})

		Convey("When counter-attacks are detected", func() {
			ca := enrich.CounterAttacks(events)

			Convey("Then exactly one is found", func() {
				So(ca, ShouldHaveLength, 1)
				So(ca[0].Team, ShouldEqual, "home")
				So(ca[0].Duration, ShouldAlmostEqual, 5.0, 1e-9)
				So(ca[0].DistanceTraveled, ShouldAlmostEqual, 0.55*105, 1e-9)
				So(ca[0].XG, ShouldNotBeNil)
			})
		})
	})

	Convey("Given the same counter on a shorter pitch", t, func() {
		e, err := enrich.New(enrich.DefaultConfig(), enrich.WithPitch(pitch.New(pitch.Config{LengthMeters: 76.4, WidthMeters: 68})))
		So(err, ShouldBeNil)
		events, _ := e.Enrich(context.Background(), []model.CanonicalEvent{
			event("t", model.EventTurnover, "home", 50.0, at(0.3, 0.5)),
			event("s", model.EventShot, "home", 55.0, at(0.85, 0.5)),
		})

		Convey("Then the distance scales with the pitch length", func() {
			ca := e.CounterAttacks(events)
			So(ca, ShouldHaveLength, 1)
			So(ca[0].DistanceTraveled, ShouldAlmostEqual, 42, 0.1)
		})
	})

	Convey("Given sequences that do not qualify", t, func() {
		lost := event("lost", model.EventTurnover, "home", 50, at(0.3, 0.5))
		lost.Details.Outcome = model.OutcomeLost

		cases := map[string][]model.CanonicalEvent{
			"lost turnover": {lost, event("s", model.EventShot, "home", 55, at(0.85, 0.5))},
			"too slow":      {event("t", model.EventTurnover, "home", 50, at(0.3, 0.5)), event("s", model.EventShot, "home", 60.5, at(0.85, 0.5))},
			"too short":     {event("t", model.EventTurnover, "home", 50, at(0.7, 0.5)), event("s", model.EventShot, "home", 55, at(0.85, 0.5))},
			"not far up":    {event("t", model.EventTurnover, "home", 50, at(0.1, 0.5)), event("s", model.EventShot, "home", 55, at(0.6, 0.5))},
			"other team":    {event("t", model.EventTurnover, "home", 50, at(0.3, 0.5)), event("s", model.EventShot, "away", 55, at(0.15, 0.5))},
		}

		Convey("Then none is detected", func() {
			for _, in := range cases {
				So(enrich.CounterAttacks(enrich.Enrich(in)), ShouldBeEmpty)
			}
		})
	})

	Convey("Given one turnover followed by two qualifying shots", t, func() {
		ca := enrich.CounterAttacks(enrich.Enrich([]model.CanonicalEvent{
			event("t", model.EventTurnover, "home", 50, at(0.3, 0.5)),
			event("s1", model.EventShot, "home", 54, at(0.85, 0.5)),
			event("s2", model.EventShot, "home", 57, at(0.9, 0.5)),
		}))

		Convey("Then only the first shot counts", func() {
			So(ca, ShouldHaveLength, 1)
			So(ca[0].ShotTimestamp, ShouldEqual, 54)
		})
	})

	Convey("Given two turnovers leading to the same shot", t, func() {
		ca := enrich.CounterAttacks(enrich.Enrich([]model.CanonicalEvent{
			event("t1", model.EventTurnover, "away", 50, at(0.8, 0.5)),
			event("t2", model.EventTurnover, "away", 52, at(0.7, 0.5)),
			event("s", model.EventShot, "away", 58, at(0.1, 0.5)),
		}))

		Convey("Then the shot is credited once, to the latest turnover", func() {
			So(ca, ShouldHaveLength, 1)
			So(ca[0].StartTimestamp, ShouldEqual, 52)
			So(ca[0].Duration, ShouldAlmostEqual, 6, 1e-9)
		})
	})

	Convey("Given no events", t, func() {
		So(enrich.CounterAttacks(nil), ShouldBeEmpty)
		So(enrich.Enrich(nil), ShouldBeEmpty)
	})
}

func TestBallFallback(t *testing.T) {
	Convey("Given events missing the positions a derivation needs", t, func() {
		ballCarry := event("ball-carry", model.EventCarry, "home", 30, at(0.2, 0.5))
		ballCarry.Details.DurationSec = model.Float64Ptr(3)
		ballCarry.Details.EndZone = "attacking_third"

		explicit := event("explicit", model.EventCarry, "home", 40, at(0.2, 0.5))
		explicit.Details.EndPosition = at(0.3, 0.5)
		explicit.Details.DurationSec = model.Float64Ptr(2)

		untimed := event("untimed", model.EventCarry, "home", 50, at(0.5, 0.5))
		untimed.Details.EndZone = "attacking_third"

		in := []model.CanonicalEvent{
			event("seen", model.EventPass, "home", 10, at(0.3, 0.5)),
			event("seen-next", model.EventTurnover, "home", 12, nil),
			event("unseen", model.EventPass, "home", 20, at(0.6, 0.5)),
			event("unseen-next", model.EventTurnover, "home", 22, nil),
			ballCarry, explicit, untimed,
		}
		ball := []model.BallSample{
			{TimestampSec: 50, Position: model.Position{X: 0.9, Y: 0.9}},
			{TimestampSec: 42, Position: model.Position{X: 0.9, Y: 0.9}},
			{TimestampSec: 33.2, Position: model.Position{X: 0.4, Y: 0.5}},
			{TimestampSec: 25, Position: model.Position{X: 0.1, Y: 0.5}},
			{TimestampSec: 12.3, Position: model.Position{X: 0.6, Y: 0.5}},
			{TimestampSec: math.NaN(), Position: model.Position{X: 0.1, Y: 0.5}},
			{TimestampSec: 22, Position: model.Position{X: math.Inf(1), Y: 0.5}},
		}

		Convey("When enriched with a ball trajectory", func() {
			out, stats := enrich.Default().EnrichWith(context.Background(), in, ball)

			Convey("Then the ball stands in for a missing next position", func() {
				So(byID(out, "seen").PassDirection, ShouldEqual, model.PassForward)
			})

			Convey("And a ball sample outside the tolerance is ignored", func() {
				So(byID(out, "unseen").PassDirection, ShouldEqual, model.PassLateral)
			})

			Convey("And a carry of known duration ends where the ball is", func() {
				So(*byID(out, "ball-carry").CarryDistanceMeters, ShouldAlmostEqual, 0.2*105, 1e-9)
			})

			Convey("And an explicit end position wins over the ball", func() {
				So(*byID(out, "explicit").CarryDistanceMeters, ShouldAlmostEqual, 0.1*105, 1e-9)
			})

			Convey("And a carry without a duration keeps the end-zone centre", func() {
				plain, _ := enrich.Default().Enrich(context.Background(), []model.CanonicalEvent{untimed})
				So(*byID(out, "untimed").CarryDistanceMeters, ShouldAlmostEqual, *plain[0].CarryDistanceMeters, 1e-9)
			})

			Convey("And stats count the ball-assisted fields", func() {
				So(stats.Fields[enrich.FieldBallAssisted], ShouldEqual, 2)
			})
		})

		Convey("When enriched without a ball trajectory", func() {
			out, stats := enrich.Default().Enrich(context.Background(), in)

			Convey("Then passes fall back to lateral and timed carries to the end zone", func() {
				So(byID(out, "seen").PassDirection, ShouldEqual, model.PassLateral)
				So(byID(out, "ball-carry").CarryDistanceMeters, ShouldNotBeNil)
				So(*byID(out, "ball-carry").CarryDistanceMeters, ShouldNotAlmostEqual, 0.2*105, 1e-6)
				So(stats.Fields[enrich.FieldBallAssisted], ShouldEqual, 0)
			})
		})
	})
}

func TestEnrichConfig(t *testing.T) {
	Convey("Given an invalid configuration", t, func() {
		cfg := enrich.DefaultConfig()
		cfg.Dribble.WeakThreshold = 0.8

		Convey("Then New rejects it", func() {
			_, err := enrich.New(cfg)
			So(errors.Is(err, enrich.ErrInvalidConfig), ShouldBeTrue)
		})
	})

	Convey("Given a negative ball tolerance", t, func() {
		cfg := enrich.DefaultConfig()
		cfg.BallToleranceSec = -1

		Convey("Then New rejects it", func() {
			_, err := enrich.New(cfg)
			So(errors.Is(err, enrich.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
