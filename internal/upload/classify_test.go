package upload_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"

	"google.golang.org/api/googleapi"

	"reelup/internal/upload"
)

type codedError struct{ code int }

func (e codedError) Error() string       { return fmt.Sprintf("http %d", e.code) }
func (e codedError) HTTPStatusCode() int { return e.code }

func TestClassifyStatusCodes(t *testing.T) {
	for _, code := range []int{500, 502, 503, 504} {
		got := upload.Classify(&googleapi.Error{Code: code})
		if got.Kind != upload.KindRetriableServerStatus || got.StatusCode != code {
			t.Fatalf("Classify(%d) = %+v, want retriable server status", code, got)
		}
		if !got.Retriable() {
			t.Fatalf("status %d should be retriable", code)
		}
	}
	for _, code := range []int{400, 401, 403, 404, 409, 429, 501, 505} {
		got := upload.Classify(&googleapi.Error{Code: code})
		if got.Kind != upload.KindFatalClient || got.StatusCode != code {
			t.Fatalf("Classify(%d) = %+v, want fatal client", code, got)
		}
		if got.Retriable() {
			t.Fatalf("status %d should not be retriable", code)
		}
	}
}

func TestClassifyStatusWinsOverTransportSignal(t *testing.T) {
	err := fmt.Errorf("%w: %w", upload.ErrTransport, &googleapi.Error{Code: 403})
	if got := upload.Classify(err); got.Kind != upload.KindFatalClient {
		t.Fatalf("Classify = %+v, want fatal client", got)
	}
	wrapped := fmt.Errorf("chunk: %w", codedError{code: 502})
	if got := upload.Classify(wrapped); got.Kind != upload.KindRetriableServerStatus || got.StatusCode != 502 {
		t.Fatalf("Classify = %+v, want retriable 502", got)
	}
}

func TestClassifyTransportFaults(t *testing.T) {
	cases := map[string]error{
		"sentinel":       fmt.Errorf("put chunk: %w", upload.ErrTransport),
		"reset":          &net.OpError{Op: "write", Net: "tcp", Err: syscall.ECONNRESET},
		"broken pipe":    fmt.Errorf("write: %w", syscall.EPIPE),
		"unexpected eof": io.ErrUnexpectedEOF,
		"timeout":        fmt.Errorf("request: %w", context.DeadlineExceeded),
		"url error":      &url.Error{Op: "Put", URL: "https://upload.example", Err: io.EOF},
		"status line":    errors.New("net/http: malformed HTTP status code \"abc\""),
	}
	for name, err := range cases {
		t.Run(name, func(t *testing.T) {
			got := upload.Classify(err)
			if got.Kind != upload.KindTransientNetwork || got.StatusCode != 0 {
				t.Fatalf("Classify = %+v, want transient network", got)
			}
		})
	}
}

func TestClassifyEverythingElseIsProtocol(t *testing.T) {
	cases := []error{
		&upload.ProtocolError{Reason: "unexpected response: missing resource id"},
		errors.New("json: cannot unmarshal number"),
		context.Canceled,
		&url.Error{Op: "Put", URL: "https://upload.example", Err: context.Canceled},
	}
	for _, err := range cases {
		if got := upload.Classify(err); got.Kind != upload.KindFatalProtocol {
			t.Fatalf("Classify(%v) = %+v, want fatal protocol", err, got)
		}
	}
}

func TestErrorMatchesKindSentinels(t *testing.T) {
	err := &upload.Error{Kind: upload.KindRetriesExhausted, Retries: 10, Err: &googleapi.Error{Code: 503}}
	if !errors.Is(err, upload.ErrRetriesExhausted) {
		t.Fatal("expected exhausted sentinel to match")
	}
	if errors.Is(err, upload.ErrFatalClient) {
		t.Fatal("unexpected fatal client match")
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != 503 {
		t.Fatal("expected wrapped api error to be reachable")
	}
	if err.ErrorKind() != "retries_exhausted" {
		t.Fatalf("ErrorKind = %q", err.ErrorKind())
	}
}
