package tactics

import (
	"math"
	"sort"

	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/internal/domain/pitch"
)

// Dominant attacking patterns.
const (
	PatternCentral    = "central"
	PatternLeftFlank  = "left_flank"
	PatternRightFlank = "right_flank"
	PatternWide       = "wide"
	PatternBalanced   = "balanced"
)

// Build-up speeds.
const (
	SpeedFast     = "fast"
	SpeedModerate = "moderate"
	SpeedSlow     = "slow"
)

// Press heights.
const (
	PressHigh = "high"
	PressMid  = "mid"
	PressLow  = "low"
)

func (a *Analyzer) attackPattern(team string, f frame, counters []model.CounterAttackEvent) model.AttackPattern {
	zones := a.zoneDistribution(team, f)
	mps := a.buildUpSpeed(team, f)
	p := model.AttackPattern{
		ZoneDistribution:    zones,
		DominantPattern:     a.dominantPattern(zones),
		BuildUpMetersPerSec: mps,
		BuildUpSpeed:        a.speedLabel(mps),
		CounterAttacks:      []model.CounterAttackEvent{},
		PassCompletionRate:  passCompletion(team, f),
	}
	for _, c := range counters {
		if c.Team == team {
			p.CounterAttacks = append(p.CounterAttacks, c)
		}
	}
	return p
}

// zoneDistribution shares team's positioned attacking actions across channels.
func (a *Analyzer) zoneDistribution(team string, f frame) model.ZoneDistribution {
	counts := make([]int, 3)
	for _, ev := range f.events {
		if ev.Team != team || ev.Position == nil || !isAttackingAction(ev.Type) {
			continue
		}
		rel := a.pitch.Relative(team, ev.AbsoluteTimestamp, *ev.Position)
		switch pitch.ChannelOf(rel.Y) {
		case pitch.ChannelLeft:
			counts[0]++
		case pitch.ChannelCenter:
			counts[1]++
		default:
			counts[2]++
		}
	}
	pct := percentages(counts)
	return model.ZoneDistribution{Left: pct[0], Center: pct[1], Right: pct[2]}
}

func (a *Analyzer) dominantPattern(z model.ZoneDistribution) string {
	d := a.cfg.DominantChannelPct
	switch {
	case z.Left+z.Center+z.Right == 0:
		return PatternBalanced
	case z.Center >= d:
		return PatternCentral
	case z.Left >= d && z.Left >= 2*z.Right:
		return PatternLeftFlank
	case z.Right >= d && z.Right >= 2*z.Left:
		return PatternRightFlank
	case z.Left+z.Right >= a.cfg.WideFlanksPct:
		return PatternWide
	default:
		return PatternBalanced
	}
}

// buildUpSpeed is forward meters per second over consecutive positioned
// actions of team within BuildUpWindowSec. An opponent event ends the chain.
func (a *Analyzer) buildUpSpeed(team string, f frame) float64 {
	var prev *model.EnrichedEvent
	var meters, secs float64
	for i := range f.events {
		ev := &f.events[i]
		if ev.Team != team {
			prev = nil
			continue
		}
		if ev.Position == nil || !isAttackingAction(ev.Type) {
			continue
		}
		if prev != nil {
			dt := ev.AbsoluteTimestamp - prev.AbsoluteTimestamp
			if dt > 0 && dt <= a.cfg.BuildUpWindowSec {
				from := a.pitch.Relative(team, prev.AbsoluteTimestamp, *prev.Position)
				to := a.pitch.Relative(team, ev.AbsoluteTimestamp, *ev.Position)
				meters += math.Max(0, to.X-from.X) * a.pitch.Length()
				secs += dt
			}
		}
		prev = ev
	}
	if secs == 0 {
		return 0
	}
	return meters / secs
}

func (a *Analyzer) speedLabel(mps float64) string {
	switch {
	case mps >= a.cfg.FastBuildUpMps:
		return SpeedFast
	case mps >= a.cfg.ModerateBuildUpMps:
		return SpeedModerate
	default:
		return SpeedSlow
	}
}

// passCompletion is the percentage of team's passes with a known outcome that were completed.
func passCompletion(team string, f frame) float64 {
	complete, known := 0, 0
	for _, ev := range f.events {
		if ev.Team != team || ev.Type != model.EventPass {
			continue
		}
		switch ev.Details.Outcome {
		case model.OutcomeComplete:
			complete++
			known++
		case model.OutcomeIncomplete:
			known++
		}
	}
	if known == 0 {
		return 0
	}
	return float64(complete) / float64(known) * 100
}

func (a *Analyzer) defensePattern(team string, f frame) model.DefensePattern {
	var thirds model.ThirdCounts
	won := 0
	var sumX float64
	for _, ev := range f.events {
		if ev.Team != team || !wonTurnover(ev) {
			continue
		}
		won++
		if ev.Position == nil {
			continue
		}
		rel := a.pitch.Relative(team, ev.AbsoluteTimestamp, *ev.Position)
		sumX += rel.X
		switch pitch.ThirdOf(rel.X) {
		case pitch.ThirdDefensive:
			thirds.Defensive++
		case pitch.ThirdMiddle:
			thirds.Middle++
		default:
			thirds.Attacking++
		}
	}

	d := model.DefensePattern{
		PressHeight:           PressMid,
		RecoveryZone:          string(recoveryZone(thirds)),
		TurnoverCountsByThird: thirds,
	}
	positioned := thirds.Total()
	if positioned > 0 {
		meanX := sumX / float64(positioned)
		switch {
		case meanX > a.cfg.HighPressX:
			d.PressHeight = PressHigh
		case meanX < a.cfg.LowPressX:
			d.PressHeight = PressLow
		}
	}

	var share float64
	if positioned > 0 {
		share = float64(thirds.Attacking) / float64(positioned) * 100
	}
	volume := math.Min(100, float64(won)/a.cfg.IntensityTurnovers*100)
	d.PressIntensity = 0.5*share + 0.5*volume
	return d
}

// recoveryZone is the third with the most won turnovers; ties and empty
// counts resolve to the middle third.
func recoveryZone(t model.ThirdCounts) pitch.Third {
	zone, best := pitch.ThirdMiddle, t.Middle
	if t.Defensive > best {
		zone, best = pitch.ThirdDefensive, t.Defensive
	}
	if t.Attacking > best {
		zone = pitch.ThirdAttacking
	}
	return zone
}

// percentages converts counts to integer percentages summing to 100 by
// largest remainder. All-zero counts stay zero.
func percentages(counts []int) []int {
	out := make([]int, len(counts))
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return out
	}
	type rem struct {
		idx  int
		frac float64
	}
	rems := make([]rem, len(counts))
	given := 0
	for i, c := range counts {
		exact := float64(c) * 100 / float64(total)
		out[i] = int(math.Floor(exact))
		given += out[i]
		rems[i] = rem{idx: i, frac: exact - float64(out[i])}
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; i < 100-given; i++ {
		out[rems[i%len(rems)].idx]++
	}
	return out
}
