package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reelup/internal/logging"
	"reelup/internal/logs"
	"reelup/internal/services"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var raw bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the most recent run log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if lines < 0 {
				return services.Wrap(services.ErrValidation, "cli", "logs", "--lines must not be negative", nil)
			}
			dir := strings.TrimSpace(cfg.Paths.LogDir)
			if dir == "" {
				return services.Wrap(services.ErrConfiguration, "cli", "logs", "paths.log_dir is not set", nil)
			}
			path, err := logs.LatestRunLog(dir, logging.RunLogPattern)
			if err != nil {
				if errors.Is(err, logs.ErrNoRunLogs) {
					return services.Wrap(services.ErrNotFound, "cli", "logs", err.Error(), nil)
				}
				return err
			}

			out := cmd.OutOrStdout()
			emit := func(line string) {
				if !raw {
					line = logs.FormatRecord(line)
				}
				fmt.Fprintln(out, line)
			}

			tail, offset, err := logs.LastLines(path, lines)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "==> %s <==\n", path)
			for _, line := range tail {
				emit(line)
			}
			if !follow {
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return logs.Follow(followCtx, path, offset, 500*time.Millisecond, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines as they are written")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON records without formatting")
	return cmd
}
