package tactics_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/domain/tactics"
	. "github.com/smartystreets/goconvey/convey"
)

func ev(id string, typ model.EventType, team string, ts float64, pos *model.Position, d model.Details) model.EnrichedEvent {
	return model.EnrichedEvent{CanonicalEvent: model.CanonicalEvent{
		ID:                id,
		Type:              typ,
		Team:              team,
		AbsoluteTimestamp: ts,
		Position:          pos,
		Details:           d,
		Confidence:        0.8,
		Contributors:      1,
	}}
}

func at(x, y float64) *model.Position { return &model.Position{X: x, Y: y} }

// threeLines is ten home passes in three y bands of 4, 4 and 2 players.
func threeLines(start float64) []model.EnrichedEvent {
	rows := []struct{ x, y float64 }{
		{0.2, 0.10}, {0.2, 0.12}, {0.2, 0.14}, {0.2, 0.16},
		{0.5, 0.40}, {0.5, 0.42}, {0.5, 0.44}, {0.5, 0.46},
		{0.8, 0.80}, {0.8, 0.82},
	}
	out := make([]model.EnrichedEvent, 0, len(rows))
	for i, r := range rows {
		out = append(out, ev(fmt.Sprintf("l%d-%.0f", i, start), model.EventPass, "home", start+float64(i), at(r.x, r.y), model.Details{}))
	}
	return out
}

// roleTagged is six unpositioned home passes tagged two per role.
func roleTagged(start float64) []model.EnrichedEvent {
	roles := []string{model.RoleDefender, model.RoleDefender, model.RoleMidfielder, model.RoleMidfielder, model.RoleForward, model.RoleForward}
	out := make([]model.EnrichedEvent, 0, len(roles))
	for i, r := range roles {
		out = append(out, ev(fmt.Sprintf("r%d-%.0f", i, start), model.EventPass, "home", start+float64(i), nil, model.Details{PlayerRole: r}))
	}
	return out
}

func analyze(in tactics.Input) (model.TacticalPatternResult, model.FormationTimeline) {
	a, err := tactics.New(tactics.DefaultConfig())
	So(err, ShouldBeNil)
	r, tl, _ := a.Analyze(context.Background(), in)
	return r, tl
}

func home(tl model.FormationTimeline) model.TeamTimeline {
	t, ok := tl.Team("home")
	So(ok, ShouldBeTrue)
	return t
}

func TestEmptyInput(t *testing.T) {
	Convey("Given no events and no segments", t, func() {
		result, tl := analyze(tactics.Input{})

		Convey("Then every configured team gets one default state", func() {
			So(len(tl.Teams), ShouldEqual, 2)
			So(tl.Teams[0].Team, ShouldEqual, "home")
			So(tl.Teams[1].Team, ShouldEqual, "away")
			for _, team := range tl.Teams {
				So(len(team.States), ShouldEqual, 1)
				So(team.States[0].Formation, ShouldEqual, "4-4-2")
				So(team.States[0].Confidence, ShouldEqual, 0.3)
				So(team.States[0].Method, ShouldEqual, model.MethodDefault)
				So(team.States[0].Phase, ShouldEqual, model.PhaseTransition)
				So(team.Changes, ShouldBeEmpty)
				So(team.Variability, ShouldEqual, 0)
				So(team.Halves[0].Buckets, ShouldEqual, 0)
				So(team.Halves[1].Buckets, ShouldEqual, 0)
			}
		})

		Convey("And the patterns are neutral", func() {
			h, ok := result.Team("home")
			So(ok, ShouldBeTrue)
			So(h.Attack.ZoneDistribution, ShouldResemble, model.ZoneDistribution{})
			So(h.Attack.DominantPattern, ShouldEqual, tactics.PatternBalanced)
			So(h.Attack.BuildUpSpeed, ShouldEqual, tactics.SpeedSlow)
			So(h.Attack.CounterAttacks, ShouldNotBeNil)
			So(h.Attack.CounterAttacks, ShouldBeEmpty)
			So(h.Defense.PressHeight, ShouldEqual, tactics.PressMid)
			So(h.Defense.PressIntensity, ShouldEqual, 0)
			So(h.Defense.RecoveryZone, ShouldEqual, "middle")
		})
	})
}

func TestFormationInference(t *testing.T) {
	Convey("Given ten positions in three y bands", t, func() {
		_, tl := analyze(tactics.Input{Events: threeLines(10)})
		st := home(tl).States[0]

		Convey("Then the lines read defenders first", func() {
			So(st.Formation, ShouldEqual, "4-4-2")
			So(st.Method, ShouldEqual, model.MethodLines)
			So(st.Confidence, ShouldAlmostEqual, 0.8, 1e-9)
			So(st.Samples, ShouldEqual, 10)
			So(st.Phase, ShouldEqual, model.PhaseAttacking)
		})
	})

	Convey("Given ten positions in four y bands", t, func() {
		rows := []struct{ x, y float64 }{
			{0.2, 0.05}, {0.2, 0.07}, {0.2, 0.09},
			{0.4, 0.30}, {0.4, 0.32}, {0.4, 0.34},
			{0.6, 0.55}, {0.6, 0.57},
			{0.8, 0.80}, {0.8, 0.82},
		}
		var events []model.EnrichedEvent
		for i, r := range rows {
			events = append(events, ev(fmt.Sprintf("f%d", i), model.EventCarry, "home", float64(i+1), at(r.x, r.y), model.Details{}))
		}
		_, tl := analyze(tactics.Input{Events: events})
		st := home(tl).States[0]

		Convey("Then a four-line shape with lower confidence is reported", func() {
			So(st.Formation, ShouldEqual, "3-3-2-2")
			So(st.Method, ShouldEqual, model.MethodLines)
			So(st.Confidence, ShouldAlmostEqual, 0.7, 1e-9)
		})
	})

	Convey("Given away tracker samples mirrored on the pitch", t, func() {
		var tracks []model.TrackSample
		for i, e := range threeLines(0) {
			tracks = append(tracks, model.TrackSample{
				TrackID:      fmt.Sprintf("t%d", i),
				Team:         "away",
				TimestampSec: e.AbsoluteTimestamp,
				Position:     model.Position{X: 1 - e.Position.X, Y: 1 - e.Position.Y},
				Confidence:   0.9,
			})
		}
		_, tl := analyze(tactics.Input{Tracks: tracks})
		away, ok := tl.Team("away")
		So(ok, ShouldBeTrue)

		Convey("Then they are grouped in the away team's own frame", func() {
			So(away.States[0].Formation, ShouldEqual, "4-4-2")
			So(away.States[0].Method, ShouldEqual, model.MethodLines)
		})
	})

	Convey("Given role-tagged events without positions", t, func() {
		_, tl := analyze(tactics.Input{Events: roleTagged(10)})
		st := home(tl).States[0]

		Convey("Then the shape comes from role counts with lower confidence", func() {
			So(st.Formation, ShouldEqual, "4-3-3")
			So(st.Method, ShouldEqual, model.MethodRoles)
			So(st.Confidence, ShouldAlmostEqual, 0.46, 1e-9)
		})
	})

	Convey("Given too few role-tagged events", t, func() {
		_, tl := analyze(tactics.Input{Events: roleTagged(10)[:3]})
		st := home(tl).States[0]

		Convey("Then the default shape is used", func() {
			So(st.Formation, ShouldEqual, "4-4-2")
			So(st.Method, ShouldEqual, model.MethodDefault)
		})
	})
}

func TestPhases(t *testing.T) {
	Convey("Given a bucket dominated by away passes", t, func() {
		events := []model.EnrichedEvent{
			ev("a1", model.EventPass, "away", 10, nil, model.Details{}),
			ev("a2", model.EventPass, "away", 11, nil, model.Details{}),
			ev("a3", model.EventPass, "away", 12, nil, model.Details{}),
			ev("h1", model.EventPass, "home", 13, nil, model.Details{}),
		}
		_, tl := analyze(tactics.Input{Events: events})
		away, _ := tl.Team("away")

		Convey("Then home defends and away attacks", func() {
			So(home(tl).States[0].Phase, ShouldEqual, model.PhaseDefending)
			So(away.States[0].Phase, ShouldEqual, model.PhaseAttacking)
		})
	})

	Convey("Given balanced activity", t, func() {
		events := []model.EnrichedEvent{
			ev("a1", model.EventPass, "away", 10, nil, model.Details{}),
			ev("h1", model.EventPass, "home", 13, nil, model.Details{}),
		}
		_, tl := analyze(tactics.Input{Events: events})

		Convey("Then the phase is transition", func() {
			So(home(tl).States[0].Phase, ShouldEqual, model.PhaseTransition)
		})
	})

	Convey("Given a set-piece marker", t, func() {
		events := append(threeLines(10), ev("sp", model.EventSetPiece, "away", 40, nil, model.Details{SetPieceType: model.SetPieceCorner}))
		_, tl := analyze(tactics.Input{Events: events})

		Convey("Then the bucket is a set piece for both teams", func() {
			So(home(tl).States[0].Phase, ShouldEqual, model.PhaseSetPiece)
			away, _ := tl.Team("away")
			So(away.States[0].Phase, ShouldEqual, model.PhaseSetPiece)
		})
	})

	Convey("Given a set-piece segment overlapping the bucket", t, func() {
		segs := []model.TimeSegment{{ID: "s", StartSec: 250, EndSec: 320, Type: model.SegmentSetPiece, Confidence: 0.9}}
		_, tl := analyze(tactics.Input{Events: threeLines(10), Segments: segs})

		Convey("Then the phase is set_piece", func() {
			So(home(tl).States[0].Phase, ShouldEqual, model.PhaseSetPiece)
		})
	})
}

func TestFormationChanges(t *testing.T) {
	base := func() []model.EnrichedEvent {
		return append(threeLines(10), roleTagged(310)...)
	}

	Convey("Given a shape change between consecutive buckets", t, func() {
		_, tl := analyze(tactics.Input{Events: base()})
		h := home(tl)

		Convey("Then one tactical switch is logged at the later bucket", func() {
			So(len(h.States), ShouldEqual, 2)
			So(len(h.Changes), ShouldEqual, 1)
			c := h.Changes[0]
			So(c.From, ShouldEqual, "4-4-2")
			So(c.To, ShouldEqual, "4-3-3")
			So(c.TimestampSec, ShouldEqual, 300)
			So(c.Trigger, ShouldEqual, model.TriggerTacticalSwitch)
			So(c.Confidence, ShouldAlmostEqual, 0.46, 1e-9)
			So(h.Variability, ShouldAlmostEqual, 1.0, 1e-9)
		})
	})

	Convey("Given a substitution noted in a segment", t, func() {
		segs := []model.TimeSegment{{ID: "s", StartSec: 320, EndSec: 330, Type: model.SegmentStoppage, Confidence: 0.9, Description: "Substitution for home"}}
		goal := ev("g", model.EventShot, "away", 340, nil, model.Details{Outcome: model.OutcomeGoal})
		_, tl := analyze(tactics.Input{Events: append(base(), goal), Segments: segs})

		Convey("Then substitution outranks the goal", func() {
			So(home(tl).Changes[0].Trigger, ShouldEqual, model.TriggerSubstitution)
		})
	})

	Convey("Given a substitution noted on an event", t, func() {
		sub := ev("n", model.EventPass, "away", 330, nil, model.Details{Notes: "after the substitute came on"})
		_, tl := analyze(tactics.Input{Events: append(base(), sub)})

		Convey("Then the trigger is substitution", func() {
			So(home(tl).Changes[0].Trigger, ShouldEqual, model.TriggerSubstitution)
		})
	})

	Convey("Given a goal in the later bucket", t, func() {
		goal := ev("g", model.EventShot, "away", 340, nil, model.Details{Outcome: model.OutcomeGoal})
		_, tl := analyze(tactics.Input{Events: append(base(), goal)})

		Convey("Then the trigger is game_state", func() {
			So(home(tl).Changes[0].Trigger, ShouldEqual, model.TriggerGameState)
		})
	})

	Convey("Given more than five turnovers in the later bucket", t, func() {
		events := base()
		for i := 0; i < 6; i++ {
			events = append(events, ev(fmt.Sprintf("t%d", i), model.EventTurnover, "away", 350+float64(i), nil, model.Details{Outcome: model.OutcomeWon}))
		}
		_, tl := analyze(tactics.Input{Events: events})

		Convey("Then the trigger is opponent_pressure", func() {
			So(home(tl).Changes[0].Trigger, ShouldEqual, model.TriggerOpponentPressure)
		})
	})

	Convey("Given the same shape in every bucket", t, func() {
		events := append(threeLines(10), threeLines(310)...)
		events = append(events, threeLines(610)...)
		_, tl := analyze(tactics.Input{Events: events})
		h := home(tl)

		Convey("Then nothing changes and variability is zero", func() {
			So(len(h.States), ShouldEqual, 3)
			So(h.Changes, ShouldBeEmpty)
			So(h.Variability, ShouldEqual, 0)
		})
	})
}

func TestComparisons(t *testing.T) {
	Convey("Given activity in both halves", t, func() {
		events := append(threeLines(10), roleTagged(3000)...)
		_, tl := analyze(tactics.Input{Events: events})
		h := home(tl)

		Convey("Then each half summarizes only its own buckets", func() {
			So(len(h.States), ShouldEqual, 11)
			So(h.Halves[0].Label, ShouldEqual, tactics.LabelFirstHalf)
			So(h.Halves[0].Buckets, ShouldEqual, 1)
			So(h.Halves[0].DominantFormation, ShouldEqual, "4-4-2")
			So(h.Halves[1].Label, ShouldEqual, tactics.LabelSecondHalf)
			So(h.Halves[1].Buckets, ShouldEqual, 1)
			So(h.Halves[1].DominantFormation, ShouldEqual, "4-3-3")
			So(h.Halves[1].AverageConfidence, ShouldAlmostEqual, 0.46, 1e-9)
		})

		Convey("And phases summarize the buckets in each phase", func() {
			So(len(h.Phases), ShouldEqual, 3)
			So(h.Phases[0].Label, ShouldEqual, string(model.PhaseAttacking))
			So(h.Phases[0].Buckets, ShouldEqual, 2)
			So(h.Phases[0].Changes, ShouldEqual, 1)
			So(h.Phases[1].Buckets, ShouldEqual, 0)
			So(h.Phases[2].Label, ShouldEqual, string(model.PhaseTransition))
			So(h.Phases[2].Buckets, ShouldEqual, 9)
			So(h.Phases[2].DominantFormation, ShouldEqual, "4-4-2")
		})
	})
}

func TestAttackPatterns(t *testing.T) {
	Convey("Given home attacking actions mostly down the left", t, func() {
		events := []model.EnrichedEvent{
			ev("p1", model.EventPass, "home", 0, at(0.2, 0.1), model.Details{Outcome: model.OutcomeComplete}),
			ev("p2", model.EventPass, "home", 5, at(0.5, 0.1), model.Details{Outcome: model.OutcomeComplete}),
			ev("p3", model.EventPass, "home", 10, at(0.7, 0.5), model.Details{Outcome: model.OutcomeComplete}),
			ev("p4", model.EventPass, "home", 60, at(0.4, 0.9), model.Details{Outcome: model.OutcomeIncomplete}),
			ev("p5", model.EventPass, "home", 90, nil, model.Details{}),
		}
		result, _ := analyze(tactics.Input{Events: events})
		h, _ := result.Team("home")

		Convey("Then the channel shares sum to 100", func() {
			So(h.Attack.ZoneDistribution, ShouldResemble, model.ZoneDistribution{Left: 50, Center: 25, Right: 25})
			So(h.Attack.DominantPattern, ShouldEqual, tactics.PatternLeftFlank)
		})

		Convey("And build-up speed counts forward meters within the window", func() {
			So(h.Attack.BuildUpMetersPerSec, ShouldAlmostEqual, 5.25, 1e-9)
			So(h.Attack.BuildUpSpeed, ShouldEqual, tactics.SpeedFast)
		})

		Convey("And pass completion ignores unknown outcomes", func() {
			So(h.Attack.PassCompletionRate, ShouldAlmostEqual, 75, 1e-9)
		})
	})

	Convey("Given evenly spread actions", t, func() {
		events := []model.EnrichedEvent{
			ev("p1", model.EventCarry, "home", 0, at(0.5, 0.1), model.Details{}),
			ev("p2", model.EventCarry, "home", 100, at(0.5, 0.5), model.Details{}),
			ev("p3", model.EventCarry, "home", 200, at(0.5, 0.9), model.Details{}),
		}
		result, _ := analyze(tactics.Input{Events: events})
		h, _ := result.Team("home")

		Convey("Then the largest remainder goes to the first channel", func() {
			So(h.Attack.ZoneDistribution, ShouldResemble, model.ZoneDistribution{Left: 34, Center: 33, Right: 33})
			So(h.Attack.DominantPattern, ShouldEqual, tactics.PatternWide)
			So(h.Attack.BuildUpSpeed, ShouldEqual, tactics.SpeedSlow)
		})
	})

	Convey("Given a won turnover converted quickly", t, func() {
		events := []model.EnrichedEvent{
			ev("t", model.EventTurnover, "home", 50, at(0.3, 0.5), model.Details{Outcome: model.OutcomeWon}),
			ev("s", model.EventShot, "home", 55, at(0.85, 0.5), model.Details{}),
		}
		result, _ := analyze(tactics.Input{Events: events})
		h, _ := result.Team("home")
		a, _ := result.Team("away")

		Convey("Then the counter-attack belongs to home only", func() {
			So(len(h.Attack.CounterAttacks), ShouldEqual, 1)
			So(h.Attack.CounterAttacks[0].Duration, ShouldAlmostEqual, 5.0, 1e-9)
			So(a.Attack.CounterAttacks, ShouldBeEmpty)
		})
	})
}

func TestDefensePatterns(t *testing.T) {
	Convey("Given home winning the ball high up the pitch", t, func() {
		won := model.Details{Outcome: model.OutcomeWon}
		events := []model.EnrichedEvent{
			ev("t1", model.EventTurnover, "home", 10, at(0.8, 0.5), won),
			ev("t2", model.EventTurnover, "home", 20, at(0.9, 0.5), won),
			ev("t3", model.EventTurnover, "home", 30, at(0.7, 0.5), won),
			ev("t4", model.EventTurnover, "home", 40, at(0.5, 0.5), won),
			ev("t5", model.EventTurnover, "home", 50, at(0.1, 0.5), model.Details{Outcome: model.OutcomeLost}),
			ev("t6", model.EventTurnover, "away", 60, at(0.8, 0.5), won),
		}
		result, _ := analyze(tactics.Input{Events: events})
		h, _ := result.Team("home")
		a, _ := result.Team("away")

		Convey("Then home presses high and recovers in the attacking third", func() {
			So(h.Defense.PressHeight, ShouldEqual, tactics.PressHigh)
			So(h.Defense.RecoveryZone, ShouldEqual, "attacking")
			So(h.Defense.TurnoverCountsByThird, ShouldResemble, model.ThirdCounts{Middle: 1, Attacking: 3})
			So(h.Defense.PressIntensity, ShouldAlmostEqual, 45.5, 1e-9)
		})

		Convey("And away positions are read in the away frame", func() {
			So(a.Defense.PressHeight, ShouldEqual, tactics.PressLow)
			So(a.Defense.RecoveryZone, ShouldEqual, "defensive")
		})
	})
}

func TestDeterminism(t *testing.T) {
	Convey("Given the same input in a different order", t, func() {
		events := append(threeLines(10), roleTagged(310)...)
		events = append(events,
			ev("t", model.EventTurnover, "home", 50, at(0.3, 0.5), model.Details{Outcome: model.OutcomeWon}),
			ev("s", model.EventShot, "home", 55, at(0.85, 0.5), model.Details{}),
			ev("x", model.EventPass, "blue", 70, nil, model.Details{}),
		)
		r1, tl1 := analyze(tactics.Input{Events: events})

		shuffled := append([]model.EnrichedEvent(nil), events...)
		rand.New(rand.NewSource(3)).Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		r2, tl2 := analyze(tactics.Input{Events: shuffled})

		Convey("Then the output is identical", func() {
			So(r2, ShouldResemble, r1)
			So(tl2, ShouldResemble, tl1)
		})

		Convey("And unknown teams follow the configured ones", func() {
			So(len(tl1.Teams), ShouldEqual, 3)
			So(tl1.Teams[2].Team, ShouldEqual, "blue")
		})
	})
}

func TestAnalyzeTacticsConfig(t *testing.T) {
	Convey("Given a zero bucket size", t, func() {
		cfg := tactics.DefaultConfig()
		cfg.BucketSec = 0
		_, _, err := tactics.AnalyzeTactics(nil, nil, cfg)

		Convey("Then the configuration is rejected", func() {
			So(errors.Is(err, tactics.ErrInvalidConfig), ShouldBeTrue)
		})
	})

	Convey("Given the default configuration", t, func() {
		result, tl, err := tactics.AnalyzeTactics(threeLines(10), nil, tactics.DefaultConfig())

		Convey("Then it analyzes without error", func() {
			So(err, ShouldBeNil)
			So(len(result.Teams), ShouldEqual, 2)
			So(tl.BucketSec, ShouldEqual, 300)
		})
	})
}

func TestSparseTimeline(t *testing.T) {
	Convey("Given two passes more than fifty years apart", t, func() {
		events := []model.EnrichedEvent{
			ev("early", model.EventPass, "home", 10, at(0.4, 0.5), model.Details{}),
			ev("epoch", model.EventPass, "home", 1.7e12, at(0.4, 0.5), model.Details{}),
		}
		_, tl := analyze(tactics.Input{Events: events})

		Convey("Then only the occupied buckets get a state", func() {
			states := home(tl).States
			So(states, ShouldHaveLength, 2)
			So(states[0].TimestampSec, ShouldEqual, 0)
			So(states[1].TimestampSec, ShouldBeGreaterThan, 1.6e12)
		})
	})

	Convey("Given passes two buckets apart", t, func() {
		events := []model.EnrichedEvent{
			ev("a", model.EventPass, "home", 10, at(0.4, 0.5), model.Details{}),
			ev("b", model.EventPass, "home", 610, at(0.4, 0.5), model.Details{}),
		}
		_, tl := analyze(tactics.Input{Events: events})

		Convey("Then the quiet bucket between them still gets a state", func() {
			So(home(tl).States, ShouldHaveLength, 3)
		})
	})

	Convey("Given tracks without a finite time or position", t, func() {
		nan := math.NaN()
		tracks := []model.TrackSample{
			{TrackID: "1", Team: "home", TimestampSec: nan, Position: model.Position{X: 0.2, Y: 0.2}},
			{TrackID: "2", Team: "home", TimestampSec: math.Inf(1), Position: model.Position{X: 0.2, Y: 0.2}},
			{TrackID: "3", Team: "home", TimestampSec: 20, Position: model.Position{X: nan, Y: 0.2}},
		}
		_, tl := analyze(tactics.Input{Tracks: tracks})

		Convey("Then they are ignored", func() {
			So(home(tl).States, ShouldHaveLength, 1)
			So(home(tl).States[0].Method, ShouldEqual, model.MethodDefault)
		})
	})

	Convey("Given a non-positive bucket cap", t, func() {
		cfg := tactics.DefaultConfig()
		cfg.MaxBuckets = 0
		_, err := tactics.New(cfg)

		Convey("Then the configuration is rejected", func() {
			So(errors.Is(err, tactics.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
