// Package ratelimit throttles requests to AI providers.
//
// A Limiter combines a token bucket with a backoff window that opens when a
// provider answers 429 Too Many Requests. All provider adapters share the
// same type so one setting controls every client.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HeaderRetryAfter is the standard backoff hint sent with 429 responses.
const HeaderRetryAfter = "Retry-After"

// DefaultBackoff is used when a 429 carries no usable Retry-After header.
const DefaultBackoff = 5 * time.Second

// Limiter provides rate limiting for provider requests.
// A nil *Limiter is valid and never blocks.
type Limiter struct {
	mu      sync.Mutex
	bucket  *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// New creates a limiter allowing requestsPerSecond with the given burst.
// A non-positive rate disables the token bucket; 429 backoff still applies.
func New(requestsPerSecond float64, burst int) *Limiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		bucket: rate.NewLimiter(limit, burst),
		now:    time.Now,
	}
}

// Wait blocks until a request may be sent.
// It first honours any backoff recorded by Backoff, then the token bucket.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}

	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if delay := retryAt.Sub(l.now()); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.bucket.Wait(ctx)
}

// Backoff delays every subsequent request by d.
// A shorter backoff never shortens one already in force.
func (l *Limiter) Backoff(d time.Duration) {
	if l == nil || d <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if until := l.now().Add(d); until.After(l.retryAt) {
		l.retryAt = until
	}
}

// Observe records backoff for a 429 response. It reports whether the
// response was rate limited.
func (l *Limiter) Observe(resp *http.Response) bool {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	l.Backoff(RetryAfter(resp.Header.Get(HeaderRetryAfter), DefaultBackoff))
	return true
}

// Do sends the request built by newRequest once the limiter allows it.
// A 429 response is returned to the caller unchanged and opens a backoff
// window that delays the next request. The caller closes the body.
func (l *Limiter) Do(ctx context.Context, client *http.Client, newRequest func() (*http.Request, error)) (*http.Response, error) {
	if err := l.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := newRequest()
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	l.Observe(resp)
	return resp, nil
}

// RetryAt returns when the current backoff window ends.
func (l *Limiter) RetryAt() time.Time {
	if l == nil {
		return time.Time{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.retryAt
}

// RetryAfter parses a Retry-After value given either as seconds or as an
// HTTP date. It returns fallback when the value is empty or unparseable.
func RetryAfter(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return fallback
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}
