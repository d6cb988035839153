package errors

// Upstream-HTTP helpers for classifying IoT API responses into the project
// error taxonomy. Mirrors pg.go: the adapter maps once at the boundary and
// callers only look at codes.

import (
	"context"
	stderrs "errors"
	"net"
	"net/http"
)

// UpstreamStatusCode maps an upstream HTTP status to an ErrorCode.
// 2xx maps to Unknown and should never be passed in.
func UpstreamStatusCode(status int) ErrorCode {
	switch {
	case status == http.StatusUnauthorized:
		return ErrorCodeUnauthorized
	case status == http.StatusForbidden:
		return ErrorCodeForbidden
	case status == http.StatusNotFound:
		return ErrorCodeNotFound
	case status == http.StatusTooManyRequests:
		return ErrorCodeTooManyRequests
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrorCodeInvalidArgument
	case status >= 500:
		return ErrorCodeUnavailable
	default:
		return ErrorCodeUnknown
	}
}

// FromUpstreamStatus wraps a non-2xx upstream response into a coded error
func FromUpstreamStatus(status int, url string) error {
	return Newf(UpstreamStatusCode(status), "upstream status %d for %s", status, url)
}

// IsUpstreamTransient reports whether an upstream call failure is transient
// (timeouts, connection resets, 429, 5xx). Permanent auth/validation failures
// return false so callers stop retrying and surface them to the operator.
func IsUpstreamTransient(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.Canceled) {
		return false
	}
	var ne net.Error
	if stderrs.As(Root(err), &ne) && ne.Timeout() {
		return true
	}
	if stderrs.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch CodeOf(err) {
	case ErrorCodeUnavailable, ErrorCodeTooManyRequests:
		return true
	}
	return false
}
