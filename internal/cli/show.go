package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/report"
)

func (a *app) showCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <matchId> [version]",
		Short: "Show a stored analysis (default: the latest version)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version := service.LatestVersion
			if len(args) == 2 {
				version = args[1]
			}
			svc, closeStore, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			analysis, err := svc.Get(cmd.Context(), args[0], version)
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
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis as JSON")
	return cmd
}

func (a *app) versionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions <matchId>",
		Short: "List the stored analysis versions of a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			versions, err := svc.Versions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No analyses stored for match %s.\n", args[0])
				return nil
			}
			report.PrintVersions(cmd.OutOrStdout(), versions)
			return nil
		},
	}
}
