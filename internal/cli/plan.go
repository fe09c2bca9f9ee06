package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/ingest"
	"github.com/okian/pitchside/internal/report"
)

func (a *app) planCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "plan <segments.json>",
		Short: "Slice classified segments into analysis windows",
		Long: "Read segment classifier output (a JSON array, or an object with a " +
			"\"segments\" array; \"-\" reads stdin) and print the planned windows.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			segments, err := ingest.DecodeSegments(payload)
			if err != nil {
				return err
			}
			svc, err := service.New(service.WithLogger(a.log), service.WithConfig(*a.cfg))
			if err != nil {
				return err
			}

			windows, stats := svc.Plan(cmd.Context(), segments)
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, windows)
			}
			report.PrintWindows(out, windows)
			fmt.Fprintf(out, "\nSegments: %d  |  Malformed: %d  |  Merged: %d  |  Skipped: %d  |  Capped: %d  |  Windows: %d\n",
				stats.InputSegments, stats.Malformed, stats.Consolidations, stats.Skipped, stats.Capped, stats.Windows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print windows as JSON")
	return cmd
}
