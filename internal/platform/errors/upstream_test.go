package errors

import (
	"context"
	"net/http"
	"testing"
)

func TestUpstreamStatusCode(t *testing.T) {
	cases := []struct {
		status int
		want   ErrorCode
	}{
		{http.StatusUnauthorized, ErrorCodeUnauthorized},
		{http.StatusForbidden, ErrorCodeForbidden},
		{http.StatusNotFound, ErrorCodeNotFound},
		{http.StatusTooManyRequests, ErrorCodeTooManyRequests},
		{http.StatusBadRequest, ErrorCodeInvalidArgument},
		{http.StatusBadGateway, ErrorCodeUnavailable},
		{http.StatusInternalServerError, ErrorCodeUnavailable},
	}
	for _, c := range cases {
		if got := UpstreamStatusCode(c.status); got != c.want {
			t.Fatalf("UpstreamStatusCode(%d) = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestIsUpstreamTransient(t *testing.T) {
	if !IsUpstreamTransient(FromUpstreamStatus(http.StatusServiceUnavailable, "u")) {
		t.Fatal("503 must be transient")
	}
	if !IsUpstreamTransient(FromUpstreamStatus(http.StatusTooManyRequests, "u")) {
		t.Fatal("429 must be transient")
	}
	if IsUpstreamTransient(FromUpstreamStatus(http.StatusUnauthorized, "u")) {
		t.Fatal("401 must be permanent")
	}
	if IsUpstreamTransient(context.Canceled) {
		t.Fatal("local cancellation is not a transient upstream failure")
	}
	if !IsUpstreamTransient(context.DeadlineExceeded) {
		t.Fatal("deadline is transient (timeout)")
	}
	if IsUpstreamTransient(nil) {
		t.Fatal("nil")
	}
}
