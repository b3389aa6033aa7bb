package main

import (
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reelup/internal/config"
	"reelup/internal/deps"
	"reelup/internal/history"
	"reelup/internal/language"
	"reelup/internal/logging"
	"reelup/internal/metrics"
	"reelup/internal/notifications"
	"reelup/internal/preflight"
	"reelup/internal/services"
	"reelup/internal/services/youtube"
	"reelup/internal/textutil"
	"reelup/internal/upload"
)

type uploadFlags struct {
	title       string
	description string
	keywords    string
	category    string
	privacy     string
	language    string
	playlist    string
	parallel    int
	force       bool
	jsonOut     bool
}

type uploadLine struct {
	Source     string `json:"source"`
	Status     string `json:"status"`
	VideoID    string `json:"videoId,omitempty"`
	PlaylistID string `json:"playlistId,omitempty"`
	Attached   bool   `json:"attached"`
	Retries    int    `json:"retries"`
	ErrorKind  string `json:"errorKind,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var flags uploadFlags

	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload one or more videos with resumable retries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, ctx, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.title, "title", "t", "", "Video title (single file only; defaults to the file name)")
	cmd.Flags().StringVarP(&flags.description, "description", "d", "", "Video description")
	cmd.Flags().StringVarP(&flags.keywords, "keywords", "k", "", "Comma separated video keywords")
	cmd.Flags().StringVar(&flags.category, "category", "", "Numeric video category (defaults to upload.default_category)")
	cmd.Flags().StringVar(&flags.privacy, "privacy", "", "Privacy status: "+strings.Join(config.PrivacyStatuses, ", "))
	cmd.Flags().StringVar(&flags.language, "language", "", "Video language such as en or de-AT (defaults to the audio stream tag, then upload.default_language)")
	cmd.Flags().StringVarP(&flags.playlist, "playlist", "p", "", "Playlist to add each uploaded video to")
	cmd.Flags().IntVar(&flags.parallel, "parallel", 0, "Concurrent uploads (defaults to upload.parallel)")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Upload files that were already uploaded")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "Output results as JSON")
	return cmd
}

func runUpload(cmd *cobra.Command, ctx *commandContext, flags uploadFlags, args []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	requests, err := buildUploadRequests(cfg, flags, args)
	if err != nil {
		return err
	}
	parallel := flags.parallel
	if parallel == 0 {
		parallel = cfg.Upload.Parallel
	}
	if parallel < 1 || parallel > config.MaxParallel {
		return services.Wrap(services.ErrValidation, "upload", "parse flags",
			fmt.Sprintf("--parallel must be between 1 and %d", config.MaxParallel), nil)
	}

	if missing := deps.MissingRequired(preflight.CheckSystemDeps(cmd.Context(), cfg)); len(missing) > 0 {
		return services.Wrap(services.ErrExternalTool, "upload", "preflight",
			fmt.Sprintf("%s: %s (install it or set media.validate = false)", missing[0].Name, missing[0].Detail), nil)
	}

	logger, err := ctx.ensureLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	oauthCfg, err := youtube.LoadOAuthConfig(cfg.YouTube.ClientSecretsFile)
	if err != nil {
		return err
	}
	timeout := time.Duration(cfg.YouTube.RequestTimeoutSeconds) * time.Second
	client, err := youtube.NewHTTPClient(signalCtx, oauthCfg, youtube.NewTokenStore(cfg.YouTube.TokenFile), timeout, logger)
	if err != nil {
		return err
	}
	transport := youtube.NewResumableTransport(client,
		youtube.WithUploadBaseURL(cfg.YouTube.UploadBaseURL),
		youtube.WithChunkSize(cfg.Upload.ChunkSizeBytes),
		youtube.WithRequestTimeout(timeout),
		youtube.WithRateLimit(cfg.Upload.MaxBytesPerSecond),
		youtube.WithTransportLogger(logger),
	)
	attacher, err := youtube.NewPlaylistAttacher(signalCtx, client, cfg.YouTube.APIBaseURL)
	if err != nil {
		return err
	}

	collector := metrics.New()
	uploader := upload.NewUploader(transport,
		upload.WithAttacher(attacher),
		upload.WithMaxAttempts(cfg.Upload.MaxRetries),
		upload.WithObserver(collector),
		upload.WithLogger(logger),
	)

	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	runner := &batchRunner{
		cfg:      cfg,
		uploader: uploader,
		store:    store,
		notifier: notifications.NewService(cfg),
		logger:   logging.NewComponentLogger(logger, "batch"),
		parallel: parallel,
		force:    flags.force,
	}

	started := time.Now()
	results := runner.run(signalCtx, requests)
	elapsed := time.Since(started)

	if err := collector.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		logging.WarnWithContext(logger, "metrics export failed", "metrics_export_failed",
			logging.Error(err),
			logging.String("path", cfg.Metrics.TextfilePath),
			logging.String(logging.FieldImpact, "metrics for this run were not written"),
		)
	}

	if err := printUploadResults(cmd.OutOrStdout(), results, flags.jsonOut); err != nil {
		return err
	}

	failed, firstErr := summarizeFailures(results)
	if len(results) > 1 {
		runner.publish(signalCtx, notifications.EventBatchCompleted, notifications.Payload{
			"succeeded": len(results) - failed,
			"failed":    failed,
			"duration":  elapsed,
		})
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed: %w", failed, len(results), firstErr)
	}
	return nil
}

// buildUploadRequests resolves paths and metadata. An explicit title only
// applies to a single file; batches use each file's name.
func buildUploadRequests(cfg *config.Config, flags uploadFlags, args []string) ([]uploadRequest, error) {
	privacy, err := config.NormalizePrivacy(textutil.Ternary(strings.TrimSpace(flags.privacy) != "", flags.privacy, cfg.Upload.DefaultPrivacy))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "upload", "parse flags", "--privacy", err)
	}
	category := textutil.Ternary(strings.TrimSpace(flags.category) != "", strings.TrimSpace(flags.category), cfg.Upload.DefaultCategory)
	if err := config.ValidateCategory(category); err != nil {
		return nil, services.Wrap(services.ErrValidation, "upload", "parse flags", "--category", err)
	}
	lang, ok := language.Normalize(flags.language)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "upload", "parse flags", fmt.Sprintf("--language: unrecognized language %q", flags.language), nil)
	}
	playlist := textutil.Ternary(strings.TrimSpace(flags.playlist) != "", strings.TrimSpace(flags.playlist), cfg.Upload.DefaultPlaylistID)
	tags := textutil.SplitKeywords(flags.keywords)

	seen := make(map[string]bool, len(args))
	requests := make([]uploadRequest, 0, len(args))
	for _, arg := range args {
		path, err := config.ExpandPath(strings.TrimSpace(arg))
		if err != nil || path == "" {
			return nil, services.Wrap(services.ErrValidation, "upload", "resolve path", arg, err)
		}
		if seen[path] {
			continue
		}
		seen[path] = true

		title := textutil.InferTitle(path)
		if len(args) == 1 && strings.TrimSpace(flags.title) != "" {
			title = flags.title
		}
		title = textutil.SanitizeTitle(title)
		if title == "" {
			title = textutil.InferTitle(path)
		}
		requests = append(requests, uploadRequest{
			path: path,
			meta: upload.Metadata{
				Title:         title,
				Description:   flags.description,
				Tags:          tags,
				CategoryID:    category,
				PrivacyStatus: privacy,
				Language:      lang,
			},
			playlist: playlist,
		})
	}
	return requests, nil
}

func newUploadLine(r fileResult) uploadLine {
	line := uploadLine{
		Source:     r.Path,
		VideoID:    r.Outcome.ResourceID,
		PlaylistID: r.Outcome.CollectionID,
		Attached:   r.Outcome.Attached,
		Retries:    r.Outcome.Retries,
	}
	switch {
	case r.Skipped:
		line.Status = "skipped"
	case r.Err != nil:
		line.Status = "rejected"
		line.Error = r.Err.Error()
	case r.Outcome.Err != nil:
		line.Status = string(history.ResultFromOutcome(r.Outcome).Status)
		line.ErrorKind = string(r.Outcome.Kind())
		line.Error = outcomeError(r.Outcome).Error()
	default:
		line.Status = "uploaded"
	}
	return line
}

func printUploadResults(out io.Writer, results []fileResult, jsonOut bool) error {
	lines := make([]uploadLine, 0, len(results))
	for _, r := range results {
		lines = append(lines, newUploadLine(r))
	}
	if jsonOut {
		return encodeJSON(out, lines)
	}
	for _, line := range lines {
		switch line.Status {
		case "uploaded":
			fmt.Fprintf(out, "✓ %s -> https://youtu.be/%s", line.Source, line.VideoID)
			if line.Attached {
				fmt.Fprintf(out, " (playlist %s)", line.PlaylistID)
			}
			fmt.Fprintln(out)
		case "skipped":
			fmt.Fprintf(out, "- %s already uploaded as https://youtu.be/%s (use --force to upload again)\n", line.Source, line.VideoID)
		default:
			fmt.Fprintf(out, "✗ %s: %s\n", line.Source, line.Error)
		}
	}
	return nil
}

func summarizeFailures(results []fileResult) (int, error) {
	failed := 0
	var firstErr error
	for _, r := range results {
		if r.Skipped {
			continue
		}
		if err := r.failure(); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return failed, firstErr
}
