package upload

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

// ErrorKind labels why an upload step or run failed.
type ErrorKind string

const (
	KindTransientNetwork      ErrorKind = "transient_network"
	KindRetriableServerStatus ErrorKind = "retriable_server_status"
	KindFatalClient           ErrorKind = "fatal_client_error"
	KindFatalProtocol         ErrorKind = "fatal_protocol_error"
	KindRetriesExhausted      ErrorKind = "retries_exhausted"
	KindAttachmentFailed      ErrorKind = "attachment_failed"
	KindCanceled              ErrorKind = "canceled"
)

// Retriable reports whether the driver handles the kind locally.
func (k ErrorKind) Retriable() bool {
	return k == KindTransientNetwork || k == KindRetriableServerStatus
}

var (
	// ErrTransport marks connection-level faults raised by a transport.
	ErrTransport = errors.New("transport failure")
	// ErrSessionClosed is returned when a terminal session is advanced again.
	ErrSessionClosed = errors.New("upload session is closed")

	ErrFatalClient      = errors.New("fatal client error")
	ErrFatalProtocol    = errors.New("fatal protocol error")
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrAttachmentFailed = errors.New("attachment failed")
	ErrCanceled         = errors.New("upload canceled")
)

var kindSentinels = map[ErrorKind]error{
	KindFatalClient:      ErrFatalClient,
	KindFatalProtocol:    ErrFatalProtocol,
	KindRetriesExhausted: ErrRetriesExhausted,
	KindAttachmentFailed: ErrAttachmentFailed,
	KindCanceled:         ErrCanceled,
}

// Error is the terminal failure of an upload run. Kind is one of the fatal
// kinds, KindRetriesExhausted, KindAttachmentFailed, or KindCanceled.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	// Retries counts the backoff sleeps spent on the final failure streak.
	Retries int
	// Detail carries the raw diagnostic payload returned by the service.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("upload: ")
	switch e.Kind {
	case KindRetriesExhausted:
		fmt.Fprintf(&b, "no longer attempting to retry after %d retries", e.Retries)
	case KindAttachmentFailed:
		b.WriteString("attach to collection failed")
	case KindCanceled:
		b.WriteString("canceled")
	default:
		b.WriteString(strings.ReplaceAll(string(e.Kind), "_", " "))
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the kind sentinels (ErrRetriesExhausted, ErrAttachmentFailed, ...).
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// ErrorKind exposes the kind as a plain string for status mapping.
func (e *Error) ErrorKind() string {
	if e == nil {
		return ""
	}
	return string(e.Kind)
}

// ProtocolError reports a well-formed response the client cannot use, such
// as a completion body without a resource id.
type ProtocolError struct {
	Reason string
	Body   string
}

func (e *ProtocolError) Error() string {
	reason := strings.TrimSpace(e.Reason)
	if reason == "" {
		reason = "unexpected response"
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		return fmt.Sprintf("%s: %s", reason, body)
	}
	return reason
}

// diagnostic extracts the raw service payload from err when one is attached.
func diagnostic(err error) string {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return strings.TrimSpace(apiErr.Body)
	}
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return strings.TrimSpace(protoErr.Body)
	}
	return ""
}
