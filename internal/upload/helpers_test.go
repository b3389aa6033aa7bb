package upload_test

import (
	"bytes"
	"context"
	"strconv"
	"sync"
	"time"

	"google.golang.org/api/googleapi"

	"reelup/internal/upload"
)

type memSource struct {
	*bytes.Reader
	name string
}

func newMemSource(name string, size int) *memSource {
	return &memSource{Reader: bytes.NewReader(make([]byte, size)), name: name}
}

func (m *memSource) Name() string { return m.name }

type step struct {
	result upload.ChunkResult
	err    error
	// hook runs before the step is returned.
	hook func()
}

func advance(cursor int64) step { return step{result: upload.Progress(cursor)} }

func finish(id string) step { return step{result: upload.Done(id)} }

func fail(err error) step { return step{err: err} }

func status(code int) step {
	return step{err: &googleapi.Error{Code: code, Body: `{"error":{"code":` + strconv.Itoa(code) + `}}`}}
}

// scriptedSender replays steps in order and records the cursor seen at each call.
type scriptedSender struct {
	mu      sync.Mutex
	steps   []step
	cursors []int64
}

func newScriptedSender(steps ...step) *scriptedSender {
	return &scriptedSender{steps: steps}
}

func (s *scriptedSender) SendNextChunk(_ context.Context, session *upload.Session) (upload.ChunkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors = append(s.cursors, session.Cursor())
	if len(s.steps) == 0 {
		return upload.ChunkResult{}, &upload.ProtocolError{Reason: "script exhausted"}
	}
	next := s.steps[0]
	s.steps = s.steps[1:]
	if next.hook != nil {
		next.hook()
	}
	return next.result, next.err
}

func (s *scriptedSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cursors)
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return r.err
}

func (r *recordingSleeper) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// halfBackoff makes every delay exactly 2^attempt / 2 seconds.
func halfBackoff() func(int) time.Duration {
	return upload.Backoff{Rand: func() float64 { return 0.5 }}.NextDelay
}

type fakeTransport struct {
	mu       sync.Mutex
	senders  map[string]upload.ChunkSender
	prepared []upload.Metadata
	err      error
}

func (f *fakeTransport) Prepare(source upload.Source, meta upload.Metadata) (upload.ChunkSender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prepared = append(f.prepared, meta)
	if f.err != nil {
		return nil, f.err
	}
	return f.senders[source.Name()], nil
}

type attachCall struct {
	ResourceID   string
	CollectionID string
}

type fakeAttacher struct {
	mu    sync.Mutex
	calls []attachCall
	err   error
}

func (f *fakeAttacher) Attach(_ context.Context, resourceID, collectionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, attachCall{ResourceID: resourceID, CollectionID: collectionID})
	return f.err
}

func memOpener(size int) upload.SourceOpener {
	return func(path string) (upload.Source, func() error, error) {
		return newMemSource(path, size), nil, nil
	}
}

type recordingObserver struct {
	mu        sync.Mutex
	committed []int64
	retries   []upload.ErrorKind
	outcomes  []upload.Outcome
}

func (r *recordingObserver) ChunkCommitted(cursor, _ int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, cursor)
}

func (r *recordingObserver) RetryScheduled(class upload.Classification, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries = append(r.retries, class.Kind)
}

func (r *recordingObserver) UploadFinished(outcome upload.Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}
