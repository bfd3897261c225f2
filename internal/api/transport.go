package api

import (
	"errors"
	"net/http"

	apperrors "pengaduan/internal/errors"
	"pengaduan/internal/ratelimit"
)

// gateTransport consults a rate-limit gate before handing a request to the
// underlying transport. A refused request fails with RateLimitError and
// never reaches the network.
type gateTransport struct {
	next http.RoundTripper
	gate ratelimit.Gate
}

func newGateTransport(next http.RoundTripper, gate ratelimit.Gate) *gateTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &gateTransport{next: next, gate: gate}
}

// RoundTrip implements http.RoundTripper.
func (t *gateTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	key := RequestKey(req.Method, req.URL.Path)
	if !t.gate.IsAllowed(key) {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, apperrors.NewRateLimitError(key)
	}
	return t.next.RoundTrip(req)
}

// RequestKey builds the limiter key of a request: "{METHOD}-{path}".
func RequestKey(method, path string) string {
	return method + "-" + path
}

func asRateLimit(err error, target **apperrors.RateLimitError) bool {
	return errors.As(err, target)
}
