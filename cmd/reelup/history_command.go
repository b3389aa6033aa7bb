package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelup/internal/history"
	"reelup/internal/services"
)

type historyRow struct {
	ID           int64      `json:"id"`
	UploadID     string     `json:"uploadId"`
	Source       string     `json:"source"`
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	Language     string     `json:"language,omitempty"`
	VideoID      string     `json:"videoId,omitempty"`
	PlaylistID   string     `json:"playlistId,omitempty"`
	ErrorKind    string     `json:"errorKind,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	Retries      int        `json:"retries"`
	Bytes        int64      `json:"bytes"`
	SizeBytes    int64      `json:"sizeBytes"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}

func newHistoryRow(r *history.Record) historyRow {
	return historyRow{
		ID:           r.ID,
		UploadID:     r.UploadID,
		Source:       r.SourcePath,
		Title:        r.Title,
		Status:       string(r.Status),
		Language:     r.Language,
		VideoID:      r.ResourceID,
		PlaylistID:   r.PlaylistID,
		ErrorKind:    r.ErrorKind,
		ErrorMessage: r.ErrorMessage,
		Retries:      r.Retries,
		Bytes:        r.Bytes,
		SizeBytes:    r.SizeBytes,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statusFilter string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := history.ListOptions{Limit: limit}
			if strings.TrimSpace(statusFilter) != "" {
				status, err := history.ParseStatus(statusFilter)
				if err != nil {
					return services.Wrap(services.ErrValidation, "history", "parse status", validStatusHint(), err)
				}
				opts.Status = status
			}

			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}

			if jsonOut {
				rows := make([]historyRow, 0, len(records))
				for _, r := range records {
					rows = append(rows, newHistoryRow(r))
				}
				return writeJSON(cmd, rows)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No uploads recorded")
				return nil
			}
			fmt.Fprint(out, renderHistoryTable(records))
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of uploads to show (0 for all)")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show uploads with this status")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func renderHistoryTable(records []*history.Record) string {
	cols := titles(
		numCol("ID"), col("Started"), col("File"), col("Title"), col("Status"),
		col("Lang"), col("Video"), numCol("Retries"), numCol("Size"), numCol("Took"),
	)
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		status := string(r.Status)
		if r.ErrorKind != "" {
			status += " (" + r.ErrorKind + ")"
		}
		took := "-"
		if d := r.Duration(); d > 0 {
			took = d.Round(time.Second).String()
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			filepath.Base(r.SourcePath),
			r.Title,
			status,
			valueOrDash(r.Language),
			valueOrDash(r.ResourceID),
			strconv.Itoa(r.Retries),
			humanize.IBytes(uint64(max(r.SizeBytes, 0))),
			took,
		})
	}
	return renderTable(cols, rows)
}

func validStatusHint() string {
	names := make([]string, 0, len(history.AllStatuses()))
	for _, s := range history.AllStatuses() {
		names = append(names, string(s))
	}
	return "valid statuses: " + strings.Join(names, ", ")
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
