package history

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"reelup/internal/upload"
)

// Status is the lifecycle state of one recorded upload.
type Status string

const (
	StatusUploading    Status = "uploading"
	StatusUploaded     Status = "uploaded"
	StatusAttachFailed Status = "attach_failed"
	StatusFailed       Status = "failed"
	StatusCanceled     Status = "canceled"
)

var allStatuses = []Status{
	StatusUploading,
	StatusUploaded,
	StatusAttachFailed,
	StatusFailed,
	StatusCanceled,
}

// AllStatuses returns every known status in display order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus validates a user-supplied status filter.
func ParseStatus(value string) (Status, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, status := range allStatuses {
		if string(status) == value {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// Record is one row of the upload ledger.
type Record struct {
	ID            int64
	UploadID      string
	SourcePath    string
	Title         string
	PrivacyStatus string
	Language      string
	ResourceID    string
	PlaylistID    string
	Status        Status
	ErrorKind     string
	ErrorMessage  string
	Retries       int
	Chunks        int
	Bytes         int64
	SizeBytes     int64
	StartedAt     time.Time
	FinishedAt    *time.Time
}

// Duration returns the wall time of a finished record, or zero.
func (r Record) Duration() time.Duration {
	if r.FinishedAt == nil || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Result is the terminal state written by Finish.
type Result struct {
	Status       Status
	ResourceID   string
	PlaylistID   string
	ErrorKind    string
	ErrorMessage string
	Retries      int
	Chunks       int
	Bytes        int64
}

// ResultFromOutcome maps an upload outcome to the ledger's terminal state.
func ResultFromOutcome(outcome upload.Outcome) Result {
	result := Result{
		ResourceID: outcome.ResourceID,
		PlaylistID: outcome.CollectionID,
		Retries:    outcome.Retries,
		Chunks:     outcome.Chunks,
		Bytes:      outcome.Bytes,
		Status:     StatusUploaded,
	}
	if outcome.Err == nil {
		return result
	}
	result.ErrorKind = string(outcome.Kind())
	result.ErrorMessage = outcome.Message()
	switch {
	case errors.Is(outcome.Err, upload.ErrAttachmentFailed):
		result.Status = StatusAttachFailed
	case errors.Is(outcome.Err, upload.ErrCanceled):
		result.Status = StatusCanceled
	default:
		result.Status = StatusFailed
	}
	return result
}
