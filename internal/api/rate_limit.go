package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// unixTimestampThreshold separates Unix timestamps from relative seconds in
// reset headers. Larger values are read as timestamps (after 2001-09-09).
const unixTimestampThreshold = 1_000_000_000

// ResponseMeta describes a received response.
type ResponseMeta struct {
	StatusCode int
	Header     http.Header
	URL        string
	Method     string
	Duration   time.Duration
	Size       int
	RequestID  string
	RateLimit  *RateLimitInfo
}

func newResponseMeta(req *ResolvedRequest, resp *http.Response, size int, elapsed time.Duration, now time.Time) *ResponseMeta {
	return &ResponseMeta{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		URL:        req.URL.String(),
		Method:     string(req.Method),
		Duration:   elapsed,
		Size:       size,
		RequestID:  requestIDFromHeader(resp.Header),
		RateLimit:  parseRateLimitInfo(resp.Header, now),
	}
}

// RateLimitInfo holds parsed rate limit header values.
type RateLimitInfo struct {
	Limit     *int
	Remaining *int
	ResetAt   *time.Time
	ResetRaw  string
}

// Meta returns a JSON-ready map for CLI output.
func (r *RateLimitInfo) Meta() map[string]any {
	if r == nil {
		return nil
	}
	meta := map[string]any{}
	if r.Limit != nil {
		meta["limit"] = *r.Limit
	}
	if r.Remaining != nil {
		meta["remaining"] = *r.Remaining
	}
	if r.ResetAt != nil {
		meta["reset_at"] = r.ResetAt.UTC().Format(time.RFC3339)
	} else if r.ResetRaw != "" {
		meta["reset"] = r.ResetRaw
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func parseRateLimitInfo(h http.Header, now time.Time) *RateLimitInfo {
	if h == nil {
		return nil
	}
	limitVal := firstHeader(h, "X-RateLimit-Limit", "RateLimit-Limit")
	remainingVal := firstHeader(h, "X-RateLimit-Remaining", "RateLimit-Remaining")
	resetVal := firstHeader(h, "X-RateLimit-Reset", "RateLimit-Reset")

	if limitVal == "" && remainingVal == "" && resetVal == "" {
		return nil
	}

	info := &RateLimitInfo{}
	if v, err := strconv.Atoi(limitVal); err == nil {
		info.Limit = &v
	}
	if v, err := strconv.Atoi(remainingVal); err == nil {
		info.Remaining = &v
	}
	if resetVal != "" {
		info.ResetRaw = resetVal
		if t, ok := parseRateLimitReset(resetVal, now); ok {
			info.ResetAt = &t
		}
	}

	if info.Limit == nil && info.Remaining == nil && info.ResetRaw == "" {
		return nil
	}
	return info
}

func firstHeader(h http.Header, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(h.Get(key)); value != "" {
			return value
		}
	}
	return ""
}

func parseRateLimitReset(value string, now time.Time) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		switch {
		case secs > unixTimestampThreshold:
			return time.Unix(secs, 0).UTC(), true
		case secs >= 0:
			return now.Add(time.Duration(secs) * time.Second).UTC(), true
		}
	}
	if t, err := http.ParseTime(trimmed); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func requestIDFromHeader(header http.Header) string {
	if header == nil {
		return ""
	}
	return firstHeader(header, "X-Request-Id", "X-Correlation-Id")
}
