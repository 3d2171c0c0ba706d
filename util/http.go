package util

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// HTTPClient returns a client whose requests are paced by limiter.
// A zero timeout leaves requests unbounded, which long raster downloads need.
func HTTPClient(timeout time.Duration, limiter *rate.Limiter) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport
	if limiter != nil {
		transport = &limitedTransport{next: transport, limiter: limiter}
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// NewLimiter builds the request limiter from the configured rate.
func NewLimiter(cfg Config) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
}

type limitedTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}
