package spotify

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// retryAfterTransport remembers the Retry-After advice of the last 429
// response, which the API client does not surface on its error type.
type retryAfterTransport struct {
	base       http.RoundTripper
	retryAfter atomic.Int64
}

func newRetryAfterTransport(base http.RoundTripper) *retryAfterTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryAfterTransport{base: base}
}

func (t *retryAfterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		t.retryAfter.Store(int64(parseRetryAfter(resp.Header.Get("Retry-After"))))
	}
	return resp, nil
}

// lastRetryAfter returns and clears the stored advice.
func (t *retryAfterTransport) lastRetryAfter() time.Duration {
	return time.Duration(t.retryAfter.Swap(0))
}

// parseRetryAfter accepts both delta-seconds and HTTP-date values.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(v); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}
