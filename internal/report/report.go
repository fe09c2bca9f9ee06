// Package report renders analyses as console tables.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/okian/pitchside/internal/domain/model"
)

const none = "-"

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// Clock formats match seconds as m:ss.t, e.g. 605.25 -> "10:05.3".
func Clock(sec float64) string {
	if math.IsNaN(sec) || sec < 0 {
		return none
	}
	tenths := int(math.Round(sec * 10))
	return fmt.Sprintf("%d:%02d.%d", tenths/600, (tenths/10)%60, tenths%10)
}

// PrintSummary prints a header block for one analysis.
func PrintSummary(w io.Writer, a model.Analysis) {
	st := a.Stats
	fmt.Fprintf(w, "\nMatch: %s  |  Version: %s  |  Run: %s  |  Created: %s\n",
		a.MatchID, a.Version, a.RunID, a.CreatedAt.UTC().Format("2006-01-02 15:04:05Z"))
	fmt.Fprintf(w, "Segments: %d  |  Windows: %d  |  Raw: %d  |  Dropped: %d  |  Merged: %d  |  Events: %d  |  Counters: %d\n\n",
		st.Segments, st.Windows, st.RawEvents, dropped(st), st.Merged, st.Canonical, st.CounterAttacks)
}

func dropped(st model.RunStats) int {
	n := 0
	for _, v := range st.Dropped {
		n += v
	}
	return n
}

// PrintWindows prints the planned windows.
func PrintWindows(w io.Writer, windows []model.AnalysisWindow) {
	table := newTable(w)
	table.Header("#", "SEGMENT", "TYPE", "START", "END", "OVERLAP", "FPS", "ID")
	for i, win := range windows {
		table.Append(
			strconv.Itoa(i+1),
			win.SegmentID,
			string(win.SegmentType),
			Clock(win.AbsoluteStart),
			Clock(win.AbsoluteEnd),
			fmt.Sprintf("%.0f/%.0f", win.OverlapBefore, win.OverlapAfter),
			fmt.Sprintf("%.2f", win.TargetSampleRate),
			shortID(win.ID),
		)
	}
	table.Render()
}

// PrintEvents prints the enriched event timeline.
func PrintEvents(w io.Writer, events []model.EnrichedEvent) {
	table := newTable(w)
	table.Header("TIME", "TYPE", "TEAM", "PLAYER", "WINDOWS", "CONF", "TIER", "DETAIL")
	for _, ev := range events {
		player := ev.Player
		if player == "" {
			player = none
		}
		table.Append(
			Clock(ev.AbsoluteTimestamp),
			string(ev.Type),
			ev.Team,
			player,
			strconv.Itoa(len(ev.MergedFromWindows)),
			fmt.Sprintf("%.2f", ev.AdjustedConfidence),
			string(ev.Quality.Tier),
			detail(ev),
		)
	}
	table.Render()
}

// detail summarizes the derived fields of one event.
func detail(ev model.EnrichedEvent) string {
	var parts []string
	if ev.Details.Outcome != "" {
		parts = append(parts, string(ev.Details.Outcome))
	}
	if ev.PassDirection != "" {
		parts = append(parts, string(ev.PassDirection))
	}
	if ev.CarryDistanceMeters != nil {
		parts = append(parts, fmt.Sprintf("%.1fm", *ev.CarryDistanceMeters))
	}
	if ev.IsDribble != nil && *ev.IsDribble {
		parts = append(parts, "dribble:"+string(ev.DribbleStrength))
	}
	if ev.XG != nil {
		parts = append(parts, fmt.Sprintf("xG %.2f", *ev.XG))
	}
	if ev.Details.SetPieceType != "" {
		parts = append(parts, string(ev.Details.SetPieceType))
	}
	if ev.Quality.NeedsReview {
		parts = append(parts, "review")
	}
	if len(parts) == 0 {
		return none
	}
	return strings.Join(parts, " ")
}

// PrintFormations prints each team's formation states and changes.
func PrintFormations(w io.Writer, tl model.FormationTimeline) {
	table := newTable(w)
	table.Header("TEAM", "FROM", "FORMATION", "PHASE", "METHOD", "CONF", "CHANGE")
	for _, team := range tl.Teams {
		changes := make(map[float64]model.FormationChange, len(team.Changes))
		for _, c := range team.Changes {
			changes[c.TimestampSec] = c
		}
		for _, st := range team.States {
			change := none
			if c, ok := changes[st.TimestampSec]; ok {
				change = fmt.Sprintf("%s->%s (%s)", c.From, c.To, c.Trigger)
			}
			table.Append(
				team.Team,
				Clock(st.TimestampSec),
				st.Formation,
				string(st.Phase),
				string(st.Method),
				fmt.Sprintf("%.2f", st.Confidence),
				change,
			)
		}
	}
	table.Render()
}

// PrintTactics prints the per-team attack and defense summary.
func PrintTactics(w io.Writer, r model.TacticalPatternResult, tl model.FormationTimeline) {
	table := newTable(w)
	table.Header("TEAM", "L/C/R %", "PATTERN", "BUILD-UP", "PASS%", "COUNTERS", "PRESS", "INTENSITY", "RECOVERY", "VARIABILITY")
	for _, t := range r.Teams {
		variability := none
		if team, ok := tl.Team(t.Team); ok {
			variability = fmt.Sprintf("%.2f", team.Variability)
		}
		z := t.Attack.ZoneDistribution
		table.Append(
			t.Team,
			fmt.Sprintf("%d/%d/%d", z.Left, z.Center, z.Right),
			t.Attack.DominantPattern,
			fmt.Sprintf("%s (%.1f m/s)", t.Attack.BuildUpSpeed, t.Attack.BuildUpMetersPerSec),
			fmt.Sprintf("%.0f%%", t.Attack.PassCompletionRate),
			strconv.Itoa(len(t.Attack.CounterAttacks)),
			t.Defense.PressHeight,
			fmt.Sprintf("%.1f", t.Defense.PressIntensity),
			t.Defense.RecoveryZone,
			variability,
		)
	}
	table.Render()
}

// PrintDropped prints drop reasons, most frequent first.
func PrintDropped(w io.Writer, st model.RunStats) {
	if len(st.Dropped) == 0 {
		return
	}
	reasons := make([]string, 0, len(st.Dropped))
	for r := range st.Dropped {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool {
		a, b := st.Dropped[reasons[i]], st.Dropped[reasons[j]]
		if a != b {
			return a > b
		}
		return reasons[i] < reasons[j]
	})
	table := newTable(w)
	table.Header("DROP REASON", "EVENTS")
	for _, r := range reasons {
		table.Append(r, strconv.Itoa(st.Dropped[r]))
	}
	table.Render()
}

// PrintAnalysis prints every section of an analysis.
func PrintAnalysis(w io.Writer, a model.Analysis) {
	PrintSummary(w, a)
	PrintEvents(w, a.Events)
	fmt.Fprintln(w)
	PrintTactics(w, a.Tactics, a.Timeline)
	fmt.Fprintln(w)
	PrintFormations(w, a.Timeline)
	PrintDropped(w, a.Stats)
}

// PrintVersions prints the stored versions of a match.
func PrintVersions(w io.Writer, versions []model.VersionInfo) {
	table := newTable(w)
	table.Header("VERSION", "CREATED", "EVENTS", "RUN")
	for _, v := range versions {
		table.Append(
			v.Version,
			v.CreatedAt.UTC().Format("2006-01-02 15:04:05Z"),
			strconv.Itoa(v.Events),
			v.RunID,
		)
	}
	table.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
