package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	ytapi "google.golang.org/api/youtube/v3"

	"reelup/internal/logging"
	"reelup/internal/services"
	"reelup/internal/upload"
)

const (
	// DefaultUploadBaseURL is the resumable upload root of the Data API.
	DefaultUploadBaseURL = "https://www.googleapis.com/upload/youtube/v3"

	statusResumeIncomplete = 308
	fallbackContentType    = "video/*"
)

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
}

// TransportError wraps a failure that happened below HTTP: dialing, writing
// the request, or reading the response body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("youtube %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is lets the upload classifier treat the failure as transient.
func (e *TransportError) Is(target error) bool {
	return target == upload.ErrTransport
}

// AuthError reports that the OAuth token source could not produce a token,
// usually because the refresh token was revoked. It classifies as a fatal
// 401 so the upload stops instead of retrying.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("youtube %s: credentials rejected: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// HTTPStatusCode implements the upload classifier's status hook.
func (e *AuthError) HTTPStatusCode() int { return http.StatusUnauthorized }

// Is matches services.ErrUnauthorized.
func (e *AuthError) Is(target error) bool {
	return target == services.ErrUnauthorized
}

// requestError wraps a failed client.Do call.
func requestError(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &AuthError{Op: op, Err: err}
	}
	return &TransportError{Op: op, Err: err}
}

// ResumableTransport implements upload.Transport over the resumable upload
// protocol. It is safe for concurrent use.
type ResumableTransport struct {
	client         *http.Client
	baseURL        string
	chunkSize      int64
	requestTimeout time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
}

// TransportOption customizes a ResumableTransport.
type TransportOption func(*ResumableTransport)

// WithUploadBaseURL overrides the upload endpoint root.
func WithUploadBaseURL(base string) TransportOption {
	return func(t *ResumableTransport) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			t.baseURL = base
		}
	}
}

// WithChunkSize sets the bytes sent per step. Zero or negative sends the
// whole remainder in one request.
func WithChunkSize(size int64) TransportOption {
	return func(t *ResumableTransport) {
		t.chunkSize = size
	}
}

// WithRequestTimeout bounds session initiation and status queries. A chunk
// request is only aborted after timeout passes with no body bytes read and
// no response, so a large chunk may take as long as it keeps moving.
func WithRequestTimeout(timeout time.Duration) TransportOption {
	return func(t *ResumableTransport) {
		t.requestTimeout = timeout
	}
}

// WithRateLimit caps upload bandwidth across every upload sharing the
// transport. Zero disables throttling.
func WithRateLimit(bytesPerSecond int64) TransportOption {
	return func(t *ResumableTransport) {
		t.limiter = newByteLimiter(bytesPerSecond)
	}
}

// WithTransportLogger sets the structured logger.
func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(t *ResumableTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewResumableTransport builds a transport over an authorized client. A
// whole-client Timeout would cap every chunk PUT, so it is moved into the
// request timeout (unless one was set) and cleared on a private copy.
func NewResumableTransport(client *http.Client, opts ...TransportOption) *ResumableTransport {
	t := &ResumableTransport{
		client:    client,
		baseURL:   DefaultUploadBaseURL,
		chunkSize: -1,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		t.client = http.DefaultClient
	}
	if t.client.Timeout > 0 {
		if t.requestTimeout == 0 {
			t.requestTimeout = t.client.Timeout
		}
		unbounded := *t.client
		unbounded.Timeout = 0
		t.client = &unbounded
	}
	t.logger = logging.NewComponentLogger(t.logger, "youtube")
	return t
}

// Prepare encodes the video resource and returns a sender bound to source.
// No request is made until the first chunk is sent.
func (t *ResumableTransport) Prepare(source upload.Source, meta upload.Metadata) (upload.ChunkSender, error) {
	if source == nil {
		return nil, errors.New("youtube prepare: source required")
	}
	if strings.TrimSpace(meta.Title) == "" {
		return nil, errors.New("youtube prepare: title required")
	}
	body, err := json.Marshal(videoResource(meta))
	if err != nil {
		return nil, fmt.Errorf("youtube prepare: encode metadata: %w", err)
	}
	return &resumableSender{
		transport:   t,
		source:      source,
		metadata:    body,
		contentType: contentType(source.Name()),
	}, nil
}

func videoResource(meta upload.Metadata) *ytapi.Video {
	return &ytapi.Video{
		Snippet: &ytapi.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,

			DefaultLanguage:      meta.Language,
			DefaultAudioLanguage: meta.Language,
		},
		Status: &ytapi.VideoStatus{
			PrivacyStatus: meta.PrivacyStatus,
		},
	}
}

func contentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := videoContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); strings.HasPrefix(ct, "video/") {
		return ct
	}
	return fallbackContentType
}

// resumableSender carries the per-upload protocol state. It is owned by the
// single driver goroutine running its session.
type resumableSender struct {
	transport   *ResumableTransport
	source      upload.Source
	metadata    []byte
	contentType string

	sessionURI string
	needsQuery bool
}

func (r *resumableSender) SendNextChunk(ctx context.Context, s *upload.Session) (upload.ChunkResult, error) {
	// An in-flight chunk runs to completion; the driver observes
	// cancellation between steps.
	ctx = context.WithoutCancel(ctx)

	if r.sessionURI == "" {
		uri, err := r.initiate(ctx, s.TotalSize())
		if err != nil {
			return upload.ChunkResult{}, err
		}
		r.sessionURI = uri
		r.needsQuery = false
	}

	if r.needsQuery {
		result, resumed, err := r.queryStatus(ctx, s)
		if err != nil {
			return upload.ChunkResult{}, err
		}
		r.needsQuery = false
		if resumed {
			return result, nil
		}
	}

	result, err := r.putChunk(ctx, s)
	if err != nil {
		r.needsQuery = true
		return upload.ChunkResult{}, err
	}
	return result, nil
}

func (t *ResumableTransport) boundedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.requestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.requestTimeout)
}

func (r *resumableSender) initiate(ctx context.Context, total int64) (string, error) {
	ctx, cancel := r.transport.boundedContext(ctx)
	defer cancel()

	endpoint := r.transport.baseURL + "/videos?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(r.metadata))
	if err != nil {
		return "", fmt.Errorf("youtube initiate: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(total, 10))
	req.Header.Set("X-Upload-Content-Type", r.contentType)

	resp, err := r.transport.client.Do(req)
	if err != nil {
		return "", requestError("initiate", err)
	}
	defer drainAndClose(resp.Body)

	if err := googleapi.CheckResponse(resp); err != nil {
		return "", err
	}
	location := strings.TrimSpace(resp.Header.Get("Location"))
	if location == "" {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", &upload.ProtocolError{Reason: "unexpected response: missing upload session location", Body: string(body)}
	}
	r.transport.logger.Debug("upload session initiated", logging.Int64("size", total))
	return location, nil
}

// queryStatus asks the server how many bytes it holds. resumed is true when
// the answer itself is a step result (the server is ahead or finished).
func (r *resumableSender) queryStatus(ctx context.Context, s *upload.Session) (upload.ChunkResult, bool, error) {
	ctx, cancel := r.transport.boundedContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.sessionURI, http.NoBody)
	if err != nil {
		return upload.ChunkResult{}, false, fmt.Errorf("youtube status: new request: %w", err)
	}
	req.ContentLength = 0
	req.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", s.TotalSize()))

	resp, err := r.transport.client.Do(req)
	if err != nil {
		return upload.ChunkResult{}, false, requestError("status", err)
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		result, err := decodeCompletion(resp)
		return result, err == nil, err
	case statusResumeIncomplete:
		offset, ok, err := acknowledgedOffset(resp.Header.Get("Range"))
		if err != nil {
			return upload.ChunkResult{}, false, err
		}
		if !ok {
			offset = 0
		}
		cursor := s.Cursor()
		switch {
		case offset > cursor:
			r.transport.logger.Info("upload resumed ahead of cursor",
				logging.Int64("cursor", cursor),
				logging.Int64("server_offset", offset),
			)
			return upload.Progress(offset), true, nil
		case offset < cursor:
			return upload.ChunkResult{}, false, &upload.ProtocolError{
				Reason: fmt.Sprintf("unexpected response: server acknowledged %d bytes, behind cursor %d", offset, cursor),
			}
		default:
			return upload.ChunkResult{}, false, nil
		}
	default:
		return upload.ChunkResult{}, false, googleapi.CheckResponse(resp)
	}
}

func (r *resumableSender) putChunk(ctx context.Context, s *upload.Session) (upload.ChunkResult, error) {
	start := s.Cursor()
	total := s.TotalSize()
	end := total
	if size := r.transport.chunkSize; size > 0 && start+size < total {
		end = start + size
	}
	length := end - start

	var stalled atomic.Bool
	var touch func()
	if timeout := r.transport.requestTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		watchdog := time.AfterFunc(timeout, func() {
			stalled.Store(true)
			cancel()
		})
		defer watchdog.Stop()
		touch = func() { watchdog.Reset(timeout) }
	}

	var body io.Reader = http.NoBody
	contentRange := fmt.Sprintf("bytes */%d", total)
	if length > 0 {
		body = io.NewSectionReader(r.source, start, length)
		if r.transport.limiter != nil {
			body = &throttledReader{ctx: ctx, r: body, limiter: r.transport.limiter}
		}
		if touch != nil {
			body = &progressReader{r: body, progress: touch}
		}
		contentRange = fmt.Sprintf("bytes %d-%d/%d", start, end-1, total)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.sessionURI, body)
	if err != nil {
		return upload.ChunkResult{}, fmt.Errorf("youtube chunk: new request: %w", err)
	}
	req.ContentLength = length
	req.Header.Set("Content-Type", r.contentType)
	req.Header.Set("Content-Range", contentRange)

	resp, err := r.transport.client.Do(req)
	if err != nil {
		if stalled.Load() {
			return upload.ChunkResult{}, &TransportError{
				Op:  "chunk",
				Err: fmt.Errorf("no progress for %s: %w", r.transport.requestTimeout, context.DeadlineExceeded),
			}
		}
		return upload.ChunkResult{}, requestError("chunk", err)
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return decodeCompletion(resp)
	case statusResumeIncomplete:
		offset, ok, err := acknowledgedOffset(resp.Header.Get("Range"))
		if err != nil {
			return upload.ChunkResult{}, err
		}
		if !ok {
			return upload.ChunkResult{}, &upload.ProtocolError{Reason: "unexpected response: chunk accepted without a range"}
		}
		return upload.Progress(offset), nil
	default:
		return upload.ChunkResult{}, googleapi.CheckResponse(resp)
	}
}

func decodeCompletion(resp *http.Response) (upload.ChunkResult, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return upload.ChunkResult{}, &TransportError{Op: "read response", Err: err}
	}
	var video ytapi.Video
	if err := json.Unmarshal(body, &video); err != nil {
		return upload.ChunkResult{}, &upload.ProtocolError{Reason: "unexpected response: decode video resource", Body: string(body)}
	}
	if strings.TrimSpace(video.Id) == "" {
		return upload.ChunkResult{}, &upload.ProtocolError{Reason: "unexpected response: missing resource id", Body: string(body)}
	}
	return upload.Done(video.Id), nil
}

// acknowledgedOffset parses a "bytes=0-N" Range header into N+1. ok is false
// when the header is absent.
func acknowledgedOffset(header string) (int64, bool, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false, nil
	}
	byteRange, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return 0, false, &upload.ProtocolError{Reason: fmt.Sprintf("unexpected response: malformed range %q", header)}
	}
	_, last, found := strings.Cut(byteRange, "-")
	if !found {
		return 0, false, &upload.ProtocolError{Reason: fmt.Sprintf("unexpected response: malformed range %q", header)}
	}
	n, err := strconv.ParseInt(strings.TrimSpace(last), 10, 64)
	if err != nil || n < 0 {
		return 0, false, &upload.ProtocolError{Reason: fmt.Sprintf("unexpected response: malformed range %q", header)}
	}
	return n + 1, true, nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
