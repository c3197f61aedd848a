// Package dryrun previews resolved requests without sending them.
package dryrun

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"code.cloudfoundry.org/bytefmt"

	"github.com/anglerdiary/flownet/internal/api"
)

type contextKey string

const dryRunKey contextKey = "dry_run_enabled"

const bodyPreviewLimit = 2048

// WithDryRun returns a context with dry-run mode enabled/disabled.
func WithDryRun(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, dryRunKey, enabled)
}

// IsEnabled returns true if dry-run mode is enabled.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(dryRunKey).(bool); ok {
		return v
	}
	return false
}

// Preview describes a request that would be sent. Credentials are redacted.
type Preview struct {
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Headers  map[string]string `json:"headers"`
	BodySize int               `json:"body_size"`
	Body     string            `json:"body,omitempty"`
	Curl     string            `json:"curl"`
	Warnings []string          `json:"warnings,omitempty"`
}

// FromRequest builds a preview of req.
func FromRequest(req *api.ResolvedRequest) *Preview {
	redacted := req.Redacted()
	p := &Preview{
		Method:   string(req.Method),
		URL:      req.URL.String(),
		Headers:  make(map[string]string, len(redacted.Header)),
		BodySize: len(req.Body),
		Curl:     redacted.CurlCommand(),
	}
	for k := range redacted.Header {
		p.Headers[k] = strings.Join(redacted.Header.Values(k), ", ")
	}

	switch {
	case len(req.Body) == 0:
	case !utf8.Valid(req.Body):
		p.Body = fmt.Sprintf("<binary, %s>", bytefmt.ByteSize(uint64(len(req.Body))))
	case len(req.Body) > bodyPreviewLimit:
		p.Body = string(req.Body[:bodyPreviewLimit]) + "..."
	default:
		p.Body = string(req.Body)
	}

	if req.Method == api.MethodDelete {
		p.Warnings = append(p.Warnings, "DELETE requests cannot be undone")
	}
	if req.Header.Get("Authorization") == "" {
		p.Warnings = append(p.Warnings, "no bearer token; the request is sent unauthenticated")
	}
	if req.URL.Scheme == "http" {
		p.Warnings = append(p.Warnings, "plain http; the request is not encrypted")
	}
	return p
}

// Write outputs the preview to the writer
func (p *Preview) Write(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\n[DRY-RUN] Would send %s %s\n", p.Method, p.URL)
	_, _ = fmt.Fprintf(w, "───────────────────────────────────────\n")

	if len(p.Headers) > 0 {
		keys := make([]string, 0, len(p.Headers))
		for k := range p.Headers {
			keys = append(keys, http.CanonicalHeaderKey(k))
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", k, p.Headers[k])
		}
		_, _ = fmt.Fprintln(w)
	}

	if p.BodySize > 0 {
		_, _ = fmt.Fprintf(w, "Body (%s):\n%s\n\n", bytefmt.ByteSize(uint64(p.BodySize)), p.Body)
	}

	_, _ = fmt.Fprintf(w, "%s\n\n", p.Curl)

	if len(p.Warnings) > 0 {
		_, _ = fmt.Fprintln(w, "Warnings:")
		for _, warning := range p.Warnings {
			_, _ = fmt.Fprintf(w, "  ! %s\n", warning)
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintf(w, "───────────────────────────────────────\n")
	_, _ = fmt.Fprintln(w, "Nothing sent (dry-run mode)")
}
