package upload

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"reelup/internal/logging"
	"reelup/internal/services"
)

// Metadata describes the resource the upload creates. The transport decides
// how it is encoded on the wire.
type Metadata struct {
	Title         string
	Description   string
	Tags          []string
	CategoryID    string
	PrivacyStatus string
	// Language is an ISO 639-1 code, optionally with a region.
	Language string
}

// Transport prepares per-upload chunk senders. Implementations are shared by
// concurrent uploads and must be safe for concurrent use; Prepare must not
// touch the network.
type Transport interface {
	Prepare(source Source, meta Metadata) (ChunkSender, error)
}

// Attacher associates an uploaded resource with a collection. It is called at
// most once per upload and never retried.
type Attacher interface {
	Attach(ctx context.Context, resourceID, collectionID string) error
}

// Observer receives driver and uploader events, typically for metrics.
type Observer interface {
	ChunkCommitted(cursor, total int64)
	RetryScheduled(class Classification, attempt int, delay time.Duration)
	UploadFinished(outcome Outcome, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ChunkCommitted(int64, int64)                       {}
func (nopObserver) RetryScheduled(Classification, int, time.Duration) {}
func (nopObserver) UploadFinished(Outcome, time.Duration)             {}

// SourceOpener opens the local byte source for a path.
type SourceOpener func(path string) (Source, func() error, error)

// Outcome is the caller-facing result of UploadResumable. ResourceID is set
// whenever the upload itself completed, even if attaching it failed.
type Outcome struct {
	SourcePath   string
	ResourceID   string
	CollectionID string
	Attached     bool
	Bytes        int64
	Chunks       int
	Retries      int
	Err          error
}

// Uploaded reports whether the upload reached the completed state.
func (o Outcome) Uploaded() bool {
	return o.ResourceID != ""
}

// Kind returns the error kind of a failed outcome, or "" on full success.
func (o Outcome) Kind() ErrorKind {
	var uploadErr *Error
	if errors.As(o.Err, &uploadErr) {
		return uploadErr.Kind
	}
	if o.Err != nil {
		return KindFatalProtocol
	}
	return ""
}

// Message returns the operator-facing failure message, or "" on success.
func (o Outcome) Message() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Option customizes an Uploader (and the Driver it builds).
type Option func(*Uploader)

// WithAttacher sets the collection attacher used after a completed upload.
func WithAttacher(attacher Attacher) Option {
	return func(u *Uploader) {
		u.attacher = attacher
	}
}

// WithMaxAttempts overrides the per-streak retry budget (defaults to 10).
func WithMaxAttempts(attempts int) Option {
	return func(u *Uploader) {
		if attempts >= 0 {
			u.maxAttempts = attempts
		}
	}
}

// WithBackoff overrides the retry delay policy.
func WithBackoff(next func(attempt int) time.Duration) Option {
	return func(u *Uploader) {
		if next != nil {
			u.backoff = next
		}
	}
}

// WithSleeper overrides how backoff sleeps are performed (useful for tests).
func WithSleeper(sleeper Sleeper) Option {
	return func(u *Uploader) {
		if sleeper != nil {
			u.sleep = sleeper
		}
	}
}

// WithClassifier overrides the failure classifier.
func WithClassifier(classify func(error) Classification) Option {
	return func(u *Uploader) {
		if classify != nil {
			u.classify = classify
		}
	}
}

// WithObserver registers an event observer.
func WithObserver(observer Observer) Option {
	return func(u *Uploader) {
		if observer != nil {
			u.observer = observer
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithSourceOpener overrides how source paths are opened.
func WithSourceOpener(open SourceOpener) Option {
	return func(u *Uploader) {
		if open != nil {
			u.open = open
		}
	}
}

// Uploader is the entry point for resumable uploads. One Uploader may run
// many uploads concurrently; each call owns its own Session and RetryState.
type Uploader struct {
	transport   Transport
	attacher    Attacher
	open        SourceOpener
	maxAttempts int
	backoff     func(int) time.Duration
	sleep       Sleeper
	classify    func(error) Classification
	observer    Observer
	logger      *slog.Logger
	now         func() time.Time
}

// NewUploader constructs an Uploader over transport.
func NewUploader(transport Transport, opts ...Option) *Uploader {
	u := &Uploader{
		transport:   transport,
		open:        openFileSource,
		maxAttempts: DefaultMaxAttempts,
		backoff:     Backoff{}.NextDelay,
		sleep:       SleepContext,
		classify:    Classify,
		observer:    nopObserver{},
		logger:      logging.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = logging.NewComponentLogger(u.logger, "upload")
	return u
}

func (u *Uploader) driver() *Driver {
	return &Driver{
		maxAttempts: u.maxAttempts,
		backoff:     u.backoff,
		sleep:       u.sleep,
		classify:    u.classify,
		observer:    u.observer,
		logger:      u.logger,
	}
}

// UploadResumable uploads the file at sourcePath and, when collectionID is
// non-empty, attaches the created resource to that collection exactly once.
// It never panics or exits; every terminal state is reported in the Outcome.
func (u *Uploader) UploadResumable(ctx context.Context, sourcePath string, meta Metadata, collectionID string) Outcome {
	started := u.now()
	outcome := Outcome{SourcePath: sourcePath, CollectionID: strings.TrimSpace(collectionID)}
	ctx = services.WithSource(ctx, sourcePath)
	logger := logging.WithContext(ctx, u.logger)

	finish := func(o Outcome) Outcome {
		u.observer.UploadFinished(o, u.now().Sub(started))
		return o
	}

	if u.transport == nil {
		outcome.Err = &Error{Kind: KindFatalClient, Err: errors.New("no upload transport configured")}
		return finish(outcome)
	}

	source, closeSource, err := u.open(sourcePath)
	if err != nil {
		outcome.Err = &Error{Kind: KindFatalClient, Err: err}
		return finish(outcome)
	}
	defer func() {
		if closeSource == nil {
			return
		}
		if cerr := closeSource(); cerr != nil {
			logger.Warn("close upload source failed", logging.Error(cerr))
		}
	}()

	sender, err := u.transport.Prepare(source, meta)
	if err != nil {
		outcome.Err = &Error{Kind: KindFatalClient, Err: err}
		return finish(outcome)
	}

	logger.Info("upload started",
		logging.Int64("size", source.Size()),
		logging.String("title", meta.Title),
	)
	session := NewSession(source, sender)
	report, runErr := u.driver().Run(ctx, session)
	outcome.Bytes = report.Bytes
	outcome.Chunks = report.Chunks
	outcome.Retries = report.Retries
	if runErr != nil {
		outcome.Err = runErr
		return finish(outcome)
	}
	outcome.ResourceID = report.ResourceID

	if outcome.CollectionID == "" {
		return finish(outcome)
	}
	if err := u.attach(ctx, outcome.ResourceID, outcome.CollectionID); err != nil {
		logger.Error("attach to collection failed",
			logging.String(logging.FieldResourceID, outcome.ResourceID),
			logging.String(logging.FieldCollectionID, outcome.CollectionID),
			logging.Error(err),
		)
		outcome.Err = &Error{Kind: KindAttachmentFailed, Detail: diagnostic(err), Err: err}
		return finish(outcome)
	}
	outcome.Attached = true
	logger.Info("attached to collection",
		logging.String(logging.FieldResourceID, outcome.ResourceID),
		logging.String(logging.FieldCollectionID, outcome.CollectionID),
	)
	return finish(outcome)
}

func (u *Uploader) attach(ctx context.Context, resourceID, collectionID string) error {
	if u.attacher == nil {
		return errors.New("no collection attacher configured")
	}
	return u.attacher.Attach(ctx, resourceID, collectionID)
}

func openFileSource(path string) (Source, func() error, error) {
	src, err := OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	return src, src.Close, nil
}
