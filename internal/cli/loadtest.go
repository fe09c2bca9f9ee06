package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/loadtest"
)

const recordingFileMode = 0o600

func (a *app) synthCmd() *cobra.Command {
	var (
		matchID string
		out     string
		seed    uint64
		cfg     = loadtest.DefaultConfig()
	)
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write a synthetic match recording for the analyze command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := service.New(service.WithLogger(a.log), service.WithConfig(*a.cfg))
			if err != nil {
				return err
			}
			m, err := loadtest.Generate(cmd.Context(), svc, matchID, cfg, seed)
			if err != nil {
				return err
			}
			if out == "" {
				return writeJSON(cmd.OutOrStdout(), m.Recording())
			}
			f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, recordingFileMode)
			if err != nil {
				return err
			}
			if err := writeJSON(f, m.Recording()); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d segments, %d windows, %d actions, %d detections\n",
				out, len(m.Segments), len(m.Windows), len(m.Truth), m.Detections())
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&matchID, "match", "synthetic-0001", "match id")
	flags.StringVarP(&out, "out", "o", "", "output file (default stdout)")
	flags.Uint64Var(&seed, "seed", 1, "random seed")
	shapeFlags(cmd, &cfg)
	return cmd
}

func (a *app) loadtestCmd() *cobra.Command {
	cfg := loadtest.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Submit synthetic matches to a running server and verify the analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Version == "" {
				cfg.Version = "loadtest-" + strconv.FormatInt(time.Now().Unix(), 10)
			}
			svc, err := service.New(service.WithLogger(a.log), service.WithConfig(*a.cfg))
			if err != nil {
				return err
			}
			r, err := loadtest.NewRunner(cfg, svc, loadtest.WithLogger(a.log))
			if err != nil {
				return err
			}
			stats, err := r.Run(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Matches: %d  |  Verified: %d  |  Conflicts: %d  |  Failed: %d  |  Mismatched: %d  |  Duration: %s\n",
				stats.Submitted, stats.Verified, stats.Conflicts, stats.Failed, stats.Mismatched, stats.Duration.Round(time.Millisecond))
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	flags.IntVar(&cfg.Matches, "matches", cfg.Matches, "number of matches to submit")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent submitters")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	flags.StringVar(&cfg.Version, "version", "", "analysis version (default loadtest-<unix time>)")
	flags.StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "match id prefix")
	flags.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "seed of the first match")
	shapeFlags(cmd, &cfg)
	return cmd
}

// shapeFlags binds the synthetic match shape settings.
func shapeFlags(cmd *cobra.Command, cfg *loadtest.Config) {
	flags := cmd.Flags()
	flags.IntVar(&cfg.SegmentsPerMatch, "segments", cfg.SegmentsPerMatch, "segments per match")
	flags.Float64Var(&cfg.SegmentSec, "segment-sec", cfg.SegmentSec, "segment length in seconds")
	flags.Float64Var(&cfg.EventGapSec, "event-gap", cfg.EventGapSec, "minimum seconds between actions")
	flags.Float64Var(&cfg.JitterSec, "jitter", cfg.JitterSec, "max timestamp noise per detection")
	flags.Float64Var(&cfg.MissRate, "miss-rate", cfg.MissRate, "chance an overlapping window misses an action")
}
