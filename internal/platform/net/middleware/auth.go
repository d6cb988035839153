package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	perr "vitals/internal/platform/errors"
	pnet "vitals/internal/platform/net"
)

// AuthPort is the seam auth implementations satisfy
type AuthPort interface {
	// Parse authenticates the request or returns an error
	Parse(r *http.Request) error
}

// Auth guards routes with the given port. A nil port passes everything through
func Auth(p AuthPort, write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil {
				next.ServeHTTP(w, r)
				return
			}
			if err := p.Parse(r); err != nil {
				status, body := pnet.Error(err, pnet.RequestID(r.Context()))
				write(w, status, body)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StaticToken is an AuthPort that accepts a single bearer token
// (operator endpoints: backfill control, etl trigger)
type StaticToken struct{ Token string }

// Parse checks the Authorization bearer value in constant time
func (s StaticToken) Parse(r *http.Request) error {
	if s.Token == "" {
		return perr.Unauthorizedf("auth not configured")
	}
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return perr.Unauthorizedf("missing bearer token")
	}
	got := strings.TrimSpace(h[len(prefix):])
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.Token)) != 1 {
		return perr.Unauthorizedf("invalid token")
	}
	return nil
}
