package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"

	"reelup/internal/config"
	"reelup/internal/history"
	"reelup/internal/logging"
	"reelup/internal/media/ffprobe"
	"reelup/internal/notifications"
	"reelup/internal/services"
	"reelup/internal/upload"
)

// resumableUploader is the part of upload.Uploader the batch needs.
type resumableUploader interface {
	UploadResumable(ctx context.Context, sourcePath string, meta upload.Metadata, collectionID string) upload.Outcome
}

type uploadRequest struct {
	path     string
	meta     upload.Metadata
	playlist string
}

// fileResult is the per-file result of a batch. Err is set when the file
// never reached the uploader (lock held, validation, duplicate).
type fileResult struct {
	Path     string
	RecordID int64
	Skipped  bool
	Outcome  upload.Outcome
	Err      error
}

func (r fileResult) failure() error {
	if r.Err != nil {
		return r.Err
	}
	return outcomeError(r.Outcome)
}

type batchRunner struct {
	cfg      *config.Config
	uploader resumableUploader
	store    *history.Store
	notifier notifications.Service
	logger   *slog.Logger
	parallel int
	force    bool
}

// run uploads every request with at most parallel uploads in flight. The
// returned slice is in request order.
func (b *batchRunner) run(ctx context.Context, requests []uploadRequest) []fileResult {
	results := make([]fileResult, len(requests))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(b.parallel, 1))
	for i, req := range requests {
		group.Go(func() error {
			results[i] = b.runOne(groupCtx, req)
			return nil
		})
	}
	_ = group.Wait()
	return results
}

func (b *batchRunner) runOne(ctx context.Context, req uploadRequest) fileResult {
	result := fileResult{Path: req.path}
	logger := b.logger.With(logging.String(logging.FieldSource, req.path))

	lock, err := history.AcquireSourceLock(b.cfg.LockDir(), req.path)
	if err != nil {
		result.Err = err
		return result
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release source lock failed", logging.Error(err))
		}
	}()

	if !b.force {
		previous, err := b.store.LastUploaded(ctx, req.path)
		if err != nil {
			result.Err = err
			return result
		}
		if previous != nil {
			result.Skipped = true
			result.Outcome = upload.Outcome{SourcePath: req.path, ResourceID: previous.ResourceID, CollectionID: previous.PlaylistID}
			logger.Info("source already uploaded; skipping",
				logging.String(logging.FieldResourceID, previous.ResourceID),
				logging.Int64(logging.FieldUploadID, previous.ID),
			)
			return result
		}
	}

	if b.cfg.Media.Validate {
		rules := ffprobe.Rules{
			RequireVideo: true,
			MaxDuration:  time.Duration(b.cfg.Media.MaxDurationSeconds) * time.Second,
		}
		probe, err := ffprobe.Check(ctx, b.cfg.FFprobeBinary(), req.path, rules)
		if err != nil {
			result.Err = err
			b.publish(ctx, notifications.EventUploadFailed, notifications.Payload{
				"source":    req.path,
				"errorKind": "validation",
				"error":     err.Error(),
			})
			return result
		}
		if req.meta.Language == "" {
			req.meta.Language = probe.AudioLanguage()
		}
	}
	if req.meta.Language == "" {
		req.meta.Language = b.cfg.Upload.DefaultLanguage
	}

	var size int64
	if info, err := os.Stat(req.path); err == nil {
		size = info.Size()
	}
	record, err := b.store.Begin(ctx, history.Entry{
		SourcePath:    req.path,
		Title:         req.meta.Title,
		PrivacyStatus: req.meta.PrivacyStatus,
		Language:      req.meta.Language,
		PlaylistID:    req.playlist,
		SizeBytes:     size,
	})
	if err != nil {
		result.Err = fmt.Errorf("record upload: %w", err)
		return result
	}
	result.RecordID = record.ID

	uploadCtx := services.WithUploadID(services.WithRequestID(ctx, record.UploadID), record.ID)
	outcome := b.uploader.UploadResumable(uploadCtx, req.path, req.meta, req.playlist)
	result.Outcome = outcome

	// The ledger row is finished even when the batch was canceled.
	if err := b.store.Finish(context.WithoutCancel(ctx), record.ID, history.ResultFromOutcome(outcome)); err != nil {
		logging.WarnWithContext(logger, "history update failed", "history_finish_failed",
			logging.Error(err),
			logging.Int64(logging.FieldUploadID, record.ID),
			logging.String(logging.FieldImpact, "history shows this upload as still running"),
		)
	}

	b.notifyOutcome(ctx, req, outcome)
	return result
}

func (b *batchRunner) notifyOutcome(ctx context.Context, req uploadRequest, outcome upload.Outcome) {
	switch {
	case outcome.Err == nil:
		b.publish(ctx, notifications.EventUploadCompleted, notifications.Payload{
			"title":      req.meta.Title,
			"videoId":    outcome.ResourceID,
			"playlistId": outcome.CollectionID,
		})
	case errors.Is(outcome.Err, upload.ErrAttachmentFailed):
		b.publish(ctx, notifications.EventAttachFailed, notifications.Payload{
			"videoId":    outcome.ResourceID,
			"playlistId": outcome.CollectionID,
			"error":      outcome.Message(),
		})
	case errors.Is(outcome.Err, upload.ErrCanceled):
		// Operator interrupt; nothing to push.
	default:
		b.publish(ctx, notifications.EventUploadFailed, notifications.Payload{
			"source":    req.path,
			"errorKind": string(outcome.Kind()),
			"error":     outcome.Message(),
		})
	}
}

func (b *batchRunner) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if b.notifier == nil {
		return
	}
	if err := b.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(b.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "upload result was not pushed"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and run `reelup test-notify`"),
		)
	}
}

// outcomeError returns the error a failed outcome should surface to the
// process exit code. A 401 from the service means the stored credentials
// were rejected.
func outcomeError(outcome upload.Outcome) error {
	if outcome.Err == nil {
		return nil
	}
	if errors.Is(outcome.Err, services.ErrUnauthorized) {
		return outcome.Err
	}
	var apiErr *googleapi.Error
	if errors.As(outcome.Err, &apiErr) && apiErr.Code == 401 {
		return services.Wrap(services.ErrUnauthorized, "youtube", "upload", "credentials rejected; run `reelup auth`", outcome.Err)
	}
	return outcome.Err
}
