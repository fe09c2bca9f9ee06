package tactics

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/pitchside/internal/domain/model"
)

// sample is one team-relative player position.
type sample struct {
	x, y float64
}

// band is a group of samples whose y values lie within the line gap.
type band struct {
	count int
	sumX  float64
	sumY  float64
}

func (b band) meanX() float64 { return b.sumX / float64(b.count) }
func (b band) meanY() float64 { return b.sumY / float64(b.count) }

// formation infers team's shape in bucket b. Line grouping is used when enough
// positions produce three or four bands, role counts otherwise, and the
// default label when neither has enough data.
func (a *Analyzer) formation(team string, b bucket) model.FormationState {
	samples := a.samples(team, b)
	if len(samples) >= a.cfg.MinPositionSamples {
		if st, ok := a.fromLines(samples); ok {
			return st
		}
	}
	if st, ok := a.fromRoles(team, b); ok {
		return st
	}
	return model.FormationState{
		Formation:  a.cfg.DefaultFormation,
		Confidence: a.cfg.DefaultConfidence,
		Method:     model.MethodDefault,
		Samples:    len(samples),
	}
}

// samples gathers outfield positions of team from events and tracks.
func (a *Analyzer) samples(team string, b bucket) []sample {
	var out []sample
	for _, ev := range b.events {
		if ev.Team != team || ev.Position == nil || ev.Details.PlayerRole == model.RoleGoalkeeper {
			continue
		}
		rel := a.pitch.Relative(team, ev.AbsoluteTimestamp, *ev.Position)
		out = append(out, sample{x: rel.X, y: rel.Y})
	}
	for _, tr := range b.tracks {
		if tr.Team != team {
			continue
		}
		rel := a.pitch.Relative(team, tr.TimestampSec, tr.Position)
		out = append(out, sample{x: rel.X, y: rel.Y})
	}
	return out
}

// fromLines splits samples sorted by y wherever consecutive values are more
// than LineGapThreshold apart. Bands are ordered from own goal outwards by
// their mean x, so the label reads defenders first.
func (a *Analyzer) fromLines(samples []sample) (model.FormationState, bool) {
	sorted := append([]sample(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].y != sorted[j].y {
			return sorted[i].y < sorted[j].y
		}
		return sorted[i].x < sorted[j].x
	})

	bands := []band{{}}
	for i, s := range sorted {
		if i > 0 && s.y-sorted[i-1].y > a.cfg.LineGapThreshold {
			bands = append(bands, band{})
		}
		cur := &bands[len(bands)-1]
		cur.count++
		cur.sumX += s.x
		cur.sumY += s.y
	}

	var score float64
	switch len(bands) {
	case 3:
		score = a.cfg.ThreeBandConfidence
	case 4:
		score = a.cfg.FourBandConfidence
	default:
		return model.FormationState{}, false
	}

	sort.SliceStable(bands, func(i, j int) bool {
		if bands[i].meanX() != bands[j].meanX() {
			return bands[i].meanX() < bands[j].meanX()
		}
		return bands[i].meanY() < bands[j].meanY()
	})
	counts := make([]int, len(bands))
	for i, bd := range bands {
		counts[i] = bd.count
	}

	coverage := math.Min(1, float64(len(samples))/float64(a.cfg.FullSampleSize))
	return model.FormationState{
		Formation:  label(distribute(counts, a.cfg.OutfieldPlayers)),
		Confidence: score * coverage,
		Method:     model.MethodLines,
		Samples:    len(samples),
	}, true
}

// fromRoles maps role-tagged event counts onto defenders, midfielders and
// forwards. It reports false when fewer than MinRoleEvents are tagged.
func (a *Analyzer) fromRoles(team string, b bucket) (model.FormationState, bool) {
	counts := make([]int, 3)
	total := 0
	for _, ev := range b.events {
		if ev.Team != team {
			continue
		}
		switch ev.Details.PlayerRole {
		case model.RoleDefender:
			counts[0]++
		case model.RoleMidfielder:
			counts[1]++
		case model.RoleForward:
			counts[2]++
		default:
			continue
		}
		total++
	}
	if total < a.cfg.MinRoleEvents {
		return model.FormationState{}, false
	}
	return model.FormationState{
		Formation:  label(distribute(counts, a.cfg.OutfieldPlayers)),
		Confidence: 0.4 + 0.2*math.Min(1, float64(total)/20),
		Method:     model.MethodRoles,
		Samples:    total,
	}, true
}

// distribute splits players across groups in proportion to counts. Every
// group gets at least one player; the rest go by largest remainder with ties
// resolved towards the earlier group.
func distribute(counts []int, players int) []int {
	out := make([]int, len(counts))
	sum := 0
	for i, c := range counts {
		out[i] = 1
		sum += c
	}
	spare := players - len(counts)
	if spare <= 0 || sum == 0 {
		return out
	}

	type rem struct {
		idx  int
		frac float64
	}
	rems := make([]rem, len(counts))
	given := 0
	for i, c := range counts {
		quota := float64(c) / float64(sum) * float64(spare)
		whole := int(math.Floor(quota))
		out[i] += whole
		given += whole
		rems[i] = rem{idx: i, frac: quota - float64(whole)}
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; i < spare-given; i++ {
		out[rems[i%len(rems)].idx]++
	}
	return out
}

func label(groups []int) string {
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = strconv.Itoa(g)
	}
	return strings.Join(parts, "-")
}
