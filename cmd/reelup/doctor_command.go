package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelup/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var online bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check paths, credentials, and external tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if online {
				results = append(results, preflight.CheckYouTubeAPI(cmd.Context(), cfg))
			}

			if jsonOut {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{r.Name, checkMark(r.Passed), r.Detail})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(titles(col("Check"), col("OK"), col("Detail")), rows))
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed: %w", len(failed), len(results), errReported)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&online, "online", false, "Also confirm the stored token against the YouTube API")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func checkMark(passed bool) string {
	if passed {
		return "✓"
	}
	return "✗"
}
