package upload

import (
	"context"
	"log/slog"
	"time"

	"reelup/internal/logging"
)

// DefaultMaxAttempts bounds one streak of consecutive retriable failures.
const DefaultMaxAttempts = 10

// RetryState tracks the current failure streak of one driver run.
type RetryState struct {
	Attempts    int
	MaxAttempts int
	LastKind    ErrorKind
}

// Report summarizes a driver run that reached a terminal state.
type Report struct {
	ResourceID string
	Chunks     int
	Retries    int
	Bytes      int64
	// Attempts is the retry counter when the run ended; it is zero after any
	// successful step.
	Attempts int
}

// Driver advances a Session to a terminal state, retrying transient
// failures with backoff.
type Driver struct {
	maxAttempts int
	backoff     func(attempt int) time.Duration
	sleep       Sleeper
	classify    func(error) Classification
	observer    Observer
	logger      *slog.Logger
}

// NewDriver builds a driver with the default classifier, backoff, and sleeper.
func NewDriver(opts ...Option) *Driver {
	u := NewUploader(nil, opts...)
	return u.driver()
}

// Run drives s until it completes, fails fatally, exhausts the retry budget,
// or ctx is canceled. Cancellation is observed before each step and during
// backoff sleeps, never in the middle of a chunk.
func (d *Driver) Run(ctx context.Context, s *Session) (Report, error) {
	state := RetryState{MaxAttempts: d.maxAttempts}
	report := Report{}
	sampler := logging.NewProgressSampler(10)
	logger := logging.WithContext(ctx, d.logger)

	for {
		if err := ctx.Err(); err != nil {
			s.fail()
			report.Attempts = state.Attempts
			return report, &Error{Kind: KindCanceled, Retries: state.Attempts, Err: err}
		}

		before := s.Cursor()
		result, err := s.Advance(ctx)
		if err == nil {
			report.Chunks++
			report.Bytes += result.Cursor - before
			state.Attempts = 0
			state.LastKind = ""
			d.observer.ChunkCommitted(s.Cursor(), s.TotalSize())
			if result.Finished {
				report.ResourceID = s.ResourceID()
				report.Attempts = state.Attempts
				logger.Info("upload completed",
					logging.String(logging.FieldResourceID, report.ResourceID),
					logging.Int("chunks", report.Chunks),
					logging.Int("retries", report.Retries),
				)
				return report, nil
			}
			if sampler.ShouldLog(percentOf(s.Cursor(), s.TotalSize())) {
				logger.Info("upload progress",
					logging.Int64("cursor", s.Cursor()),
					logging.Int64("total", s.TotalSize()),
				)
			}
			continue
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			s.fail()
			report.Attempts = state.Attempts
			return report, &Error{Kind: KindCanceled, Retries: state.Attempts, Err: ctxErr}
		}

		class := d.classify(err)
		state.LastKind = class.Kind
		if !class.Retriable() {
			s.fail()
			report.Attempts = state.Attempts
			logger.Error("upload rejected",
				logging.String(logging.FieldErrorKind, string(class.Kind)),
				logging.Int("status", class.StatusCode),
				logging.Error(err),
			)
			return report, &Error{
				Kind:       class.Kind,
				StatusCode: class.StatusCode,
				Retries:    state.Attempts,
				Detail:     diagnostic(err),
				Err:        err,
			}
		}

		state.Attempts++
		if state.Attempts > state.MaxAttempts {
			s.fail()
			report.Attempts = state.Attempts
			logger.Error("no longer attempting to retry",
				logging.String(logging.FieldErrorKind, string(class.Kind)),
				logging.Int("retries", state.MaxAttempts),
				logging.Error(err),
			)
			return report, &Error{
				Kind:       KindRetriesExhausted,
				StatusCode: class.StatusCode,
				Retries:    state.MaxAttempts,
				Detail:     diagnostic(err),
				Err:        err,
			}
		}

		delay := d.backoff(state.Attempts)
		logger.Warn("retriable upload error",
			logging.String(logging.FieldErrorKind, string(class.Kind)),
			logging.Int("status", class.StatusCode),
			logging.Int("attempt", state.Attempts),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		d.observer.RetryScheduled(class, state.Attempts, delay)
		if sleepErr := d.sleep(ctx, delay); sleepErr != nil {
			s.fail()
			report.Attempts = state.Attempts
			return report, &Error{Kind: KindCanceled, Retries: state.Attempts, Err: sleepErr}
		}
		report.Retries++
	}
}

func percentOf(cursor, total int64) float64 {
	if total <= 0 {
		return -1
	}
	return float64(cursor) * 100 / float64(total)
}
