package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Default backoff bounds for RetryPolicy.
const (
	DefaultRetryBaseDelay = 1 * time.Second
	DefaultRetryMaxDelay  = 30 * time.Second
)

// RetryPolicy is advice for callers that choose to retry. Send never
// retries on its own; a caller resolves a fresh descriptor for every attempt.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Delay reports whether retry number attempt (starting at 1) should follow
// err, and how long to wait first. Retryable codes and 429 responses qualify.
// A Retry-After header on the failed response overrides exponential backoff.
func (p RetryPolicy) Delay(attempt int, err error) (time.Duration, bool) {
	if err == nil || attempt < 1 || attempt > p.MaxRetries {
		return 0, false
	}
	if errors.Is(err, context.Canceled) {
		return 0, false
	}
	ne, ok := AsNetworkError(err)
	if !ok {
		return 0, false
	}
	if !CodeOf(ne).IsRetryable() && ne.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}

	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultRetryMaxDelay
	}
	if ne.Meta != nil {
		if d, ok := retryAfterDuration(ne.Meta.Header, time.Now()); ok {
			return min(d, maxDelay), true
		}
	}

	base := p.BaseDelay
	if base <= 0 {
		base = DefaultRetryBaseDelay
	}
	d := base
	for i := 1; i < attempt && d < maxDelay; i++ {
		d *= 2
	}
	return min(d, maxDelay), true
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryAfterDuration parses Retry-After values given in seconds or as an
// HTTP date. Past dates and negative values yield zero.
func retryAfterDuration(h http.Header, now time.Time) (time.Duration, bool) {
	if h == nil {
		return 0, false
	}
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(max(secs, 0)) * time.Second, true
	}
	if t, err := http.ParseTime(value); err == nil {
		return max(t.Sub(now), 0), true
	}
	return 0, false
}
