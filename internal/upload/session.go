package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Status is the lifecycle state of a Session.
type Status int

const (
	StatusIdle Status = iota
	StatusInProgress
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Source is the local byte source of an upload. ReadAt lets a transport
// re-read any chunk when it is retried at the same cursor.
type Source interface {
	io.ReaderAt
	Size() int64
	Name() string
}

// ChunkResult is the successful outcome of one transfer step: either
// progress to a new cursor or completion with a server-assigned resource id.
type ChunkResult struct {
	Cursor     int64
	ResourceID string
	Finished   bool
}

// Progress reports that the server acknowledged bytes up to cursor.
func Progress(cursor int64) ChunkResult {
	return ChunkResult{Cursor: cursor}
}

// Done reports that the transfer finished and the server created resourceID.
func Done(resourceID string) ChunkResult {
	return ChunkResult{ResourceID: resourceID, Finished: true}
}

// ChunkSender pushes the next portion of a session's data. It must be safe to
// call again at the same cursor after a failure.
type ChunkSender interface {
	SendNextChunk(ctx context.Context, s *Session) (ChunkResult, error)
}

// Session owns the progress of one resumable transfer. It is not safe for
// concurrent use; one driver goroutine owns it for the whole run.
type Session struct {
	sender     ChunkSender
	total      int64
	cursor     int64
	status     Status
	resourceID string
}

// NewSession prepares an idle session over source.
func NewSession(source Source, sender ChunkSender) *Session {
	var total int64
	if source != nil {
		total = source.Size()
	}
	return &Session{sender: sender, total: total}
}

func (s *Session) TotalSize() int64   { return s.total }
func (s *Session) Cursor() int64      { return s.cursor }
func (s *Session) Status() Status     { return s.status }
func (s *Session) ResourceID() string { return s.resourceID }

// Terminal reports whether the session can no longer advance.
func (s *Session) Terminal() bool {
	return s.status == StatusCompleted || s.status == StatusFailed
}

// Advance performs one transfer step. Errors from the sender are returned
// unchanged and leave the cursor where it was; the caller decides whether the
// session has failed. Results that break the cursor invariants are turned into
// a *ProtocolError.
func (s *Session) Advance(ctx context.Context) (ChunkResult, error) {
	if s.Terminal() {
		return ChunkResult{}, ErrSessionClosed
	}
	if s.sender == nil {
		return ChunkResult{}, errors.New("upload session has no chunk sender")
	}
	s.status = StatusInProgress

	result, err := s.sender.SendNextChunk(ctx, s)
	if err != nil {
		return ChunkResult{}, err
	}

	if result.Finished {
		id := strings.TrimSpace(result.ResourceID)
		if id == "" {
			return ChunkResult{}, &ProtocolError{Reason: "unexpected response: missing resource id"}
		}
		s.resourceID = id
		s.cursor = s.total
		s.status = StatusCompleted
		result.ResourceID = id
		result.Cursor = s.total
		return result, nil
	}

	if result.Cursor <= s.cursor || result.Cursor > s.total {
		return ChunkResult{}, &ProtocolError{
			Reason: fmt.Sprintf("unexpected response: cursor %d does not advance past %d (size %d)", result.Cursor, s.cursor, s.total),
		}
	}
	s.cursor = result.Cursor
	return result, nil
}

// fail moves the session to its terminal failed state.
func (s *Session) fail() {
	if s.status != StatusCompleted {
		s.status = StatusFailed
	}
}

// FileSource is a Source backed by a regular file.
type FileSource struct {
	file *os.File
	size int64
	name string
}

// OpenFile opens path for upload. Directories and missing files are rejected.
func OpenFile(path string) (*FileSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("open source: empty path")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("open source: %s is a directory", path)
	}
	return &FileSource{file: file, size: info.Size(), name: filepath.Base(path)}, nil
}

func (f *FileSource) ReadAt(p []byte, off int64) (int, error) { return f.file.ReadAt(p, off) }
func (f *FileSource) Size() int64                             { return f.size }
func (f *FileSource) Name() string                            { return f.name }
func (f *FileSource) Close() error                            { return f.file.Close() }
