package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/pitchside/internal/adapters/annotator"
	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/ingest"
	"github.com/okian/pitchside/internal/report"
)

func (a *app) analyzeCmd() *cobra.Command {
	var (
		version string
		matchID string
		latency time.Duration
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <recording.json>",
		Short: "Run a recorded match through the pipeline and store the analysis",
		Long: "Read a match recording and run it as a new analysis version. The recording is\n" +
			"an object with \"segments\", optional \"tracks\" and the annotator output as\n" +
			"match-level \"events\" and/or per-window \"replies\":\n\n" +
			"  {\"matchId\": \"m1\", \"segments\": [...], \"tracks\": [...],\n" +
			"   \"events\": [...], \"replies\": {\"<windowId>\": [...]}}",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			payload, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			replay, err := annotator.Load(payload,
				annotator.WithLogger(a.log),
				annotator.WithLatency(latency))
			if err != nil {
				return err
			}
			switch {
			case matchID == "":
				matchID = replay.MatchID()
			case replay.MatchID() != "" && replay.MatchID() != matchID:
				return fmt.Errorf("%w: recording is for match %q, not %q", ErrUsage, replay.MatchID(), matchID)
			}
			if matchID == "" {
				return fmt.Errorf("%w: no match id in recording; pass --match", ErrUsage)
			}

			segments, err := ingest.DecodeSegments(payload)
			if err != nil {
				return err
			}
			tracking, err := ingest.DecodeTracking(payload, ingest.WithLogger(a.log.Named("ingest")))
			if err != nil {
				return err
			}

			svc, closeStore, err := a.service(ctx, service.WithAnnotator(replay))
			if err != nil {
				return err
			}
			defer closeStore()

			analysis, err := svc.Run(ctx, matchID, version, segments, tracking)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), analysis)
			}
			report.PrintAnalysis(cmd.OutOrStdout(), analysis)
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "analysis version to create")
	cmd.Flags().StringVar(&matchID, "match", "", "match id (default: the recording's matchId)")
	cmd.Flags().DurationVar(&latency, "latency", 0, "simulated annotator latency per window")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis as JSON")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}
