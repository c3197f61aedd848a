package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"code.cloudfoundry.org/bytefmt"
	"go.opentelemetry.io/otel/trace"

	"github.com/anglerdiary/flownet/internal/debug"
)

// bodyPreviewLimit caps how many body bytes are logged at debug level.
const bodyPreviewLimit = 1024

// Logger records request and response phases at a fixed level.
// A nil *Logger logs nothing.
type Logger struct {
	level debug.Level
	out   *slog.Logger
}

// defaultLogOutput receives records when no slog.Logger is supplied.
var defaultLogOutput io.Writer = os.Stderr

// NewLogger returns a Logger writing to out. A nil out writes text records
// to stderr with a threshold matching level.
func NewLogger(level debug.Level, out *slog.Logger) *Logger {
	if out == nil {
		out = debug.SetupLogger(defaultLogOutput, level)
	}
	return &Logger{level: level, out: out.With("component", "flownet")}
}

// Level returns the configured level.
func (l *Logger) Level() debug.Level {
	if l == nil {
		return debug.LevelOff
	}
	return l.level
}

func (l *Logger) enabled(min debug.Level) bool {
	return l != nil && l.level.Enabled(min)
}

// LogRequest records an outgoing request.
func (l *Logger) LogRequest(ctx context.Context, req *ResolvedRequest) {
	if !l.enabled(debug.LevelInfo) {
		return
	}
	attrs := []any{"method", string(req.Method), "url", req.URL.String()}
	if l.enabled(debug.LevelDebug) {
		redacted := req.Redacted()
		attrs = append(attrs,
			"headers", formatHeaders(redacted.Header),
			"size", bytefmt.ByteSize(uint64(len(req.Body))),
			"curl", redacted.CurlCommand(),
		)
		if preview := bodyPreview(req.Body); preview != "" {
			attrs = append(attrs, "body", preview)
		}
		attrs = appendTraceID(ctx, attrs)
		l.out.DebugContext(ctx, "request", attrs...)
		return
	}
	l.out.InfoContext(ctx, "request", attrs...)
}

// LogResponse records a received response.
func (l *Logger) LogResponse(ctx context.Context, meta ResponseMeta, body []byte) {
	if !l.enabled(debug.LevelInfo) {
		return
	}
	attrs := []any{
		"method", meta.Method,
		"url", meta.URL,
		"status", meta.StatusCode,
		"duration", meta.Duration,
	}
	if l.enabled(debug.LevelDebug) {
		attrs = append(attrs,
			"headers", formatHeaders(redactHeader(meta.Header)),
			"size", bytefmt.ByteSize(uint64(meta.Size)),
		)
		if meta.RequestID != "" {
			attrs = append(attrs, "request_id", meta.RequestID)
		}
		if rl := meta.RateLimit; rl != nil {
			if rl.Remaining != nil {
				attrs = append(attrs, "rate_limit_remaining", *rl.Remaining)
			}
			if rl.ResetAt != nil {
				attrs = append(attrs, "rate_limit_reset", rl.ResetAt)
			}
		}
		if preview := bodyPreview(body); preview != "" {
			attrs = append(attrs, "body", preview)
		}
		attrs = appendTraceID(ctx, attrs)
		l.out.DebugContext(ctx, "response", attrs...)
		return
	}
	l.out.InfoContext(ctx, "response", attrs...)
}

// LogFailure records a failed send.
func (l *Logger) LogFailure(ctx context.Context, req *ResolvedRequest, err error) {
	if !l.enabled(debug.LevelInfo) {
		return
	}
	attrs := []any{"error", err}
	if req != nil {
		attrs = append(attrs, "method", string(req.Method), "url", req.URL.String())
	}
	if l.enabled(debug.LevelDebug) {
		attrs = append(attrs, "code", string(CodeOf(err)))
		attrs = appendTraceID(ctx, attrs)
	}
	l.out.WarnContext(ctx, "request failed", attrs...)
}

func appendTraceID(ctx context.Context, attrs []any) []any {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		attrs = append(attrs, "trace_id", sc.TraceID().String())
	}
	return attrs
}

func formatHeaders(h http.Header) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(h[k], ", "))
	}
	return strings.Join(parts, "; ")
}

func bodyPreview(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if !utf8.Valid(body) {
		return "<binary " + bytefmt.ByteSize(uint64(len(body))) + ">"
	}
	if len(body) <= bodyPreviewLimit {
		return string(body)
	}
	cut := bodyPreviewLimit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
