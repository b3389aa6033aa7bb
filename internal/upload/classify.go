package upload

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"google.golang.org/api/googleapi"
)

// Classification is the label Classify assigns to one failure.
type Classification struct {
	Kind       ErrorKind
	StatusCode int
}

// Retriable reports whether the failure should be retried after a backoff.
func (c Classification) Retriable() bool {
	return c.Kind.Retriable()
}

var retriableStatusCodes = map[int]struct{}{
	500: {},
	502: {},
	503: {},
	504: {},
}

// statusCoder is implemented by transport errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatusCode() int
}

var transportErrnos = []syscall.Errno{
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.ECONNREFUSED,
	syscall.EPIPE,
	syscall.ENOTCONN,
	syscall.ETIMEDOUT,
	syscall.EHOSTUNREACH,
	syscall.ENETUNREACH,
}

var transportTokens = []string{
	"connection reset",
	"broken pipe",
	"unexpected eof",
	"malformed http status code",
	"malformed http response",
	"not connected",
	"server closed idle connection",
	"http: server closed",
}

// Classify labels a failure raised during a transfer step. A status code
// wins over every other signal; a transport fault without a status is
// transient; anything else is a protocol error.
func Classify(err error) Classification {
	if code, ok := statusCode(err); ok {
		if _, retriable := retriableStatusCodes[code]; retriable {
			return Classification{Kind: KindRetriableServerStatus, StatusCode: code}
		}
		return Classification{Kind: KindFatalClient, StatusCode: code}
	}
	if isTransportFault(err) {
		return Classification{Kind: KindTransientNetwork}
	}
	return Classification{Kind: KindFatalProtocol}
}

func statusCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return apiErr.Code, true
	}
	var coder statusCoder
	if errors.As(err, &coder) {
		if code := coder.HTTPStatusCode(); code != 0 {
			return code, true
		}
	}
	return 0, false
}

func isTransportFault(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrTransport) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	// A per-request timeout; cancellation of the run itself is checked by the driver.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	for _, errno := range transportErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	message := strings.ToLower(err.Error())
	for _, token := range transportTokens {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}
