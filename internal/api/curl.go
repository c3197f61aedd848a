package api

import (
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"
)

const curlSeparator = " \\\n\t"

// redactedHeaders are masked in logs and cURL exports.
var redactedHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
	"X-Auth-Token":        true,
	"Cookie":              true,
	"Set-Cookie":          true,
}

// CurlCommand renders the request as a shell-ready curl invocation.
// Headers are sorted; Cookie headers are omitted; the body is included only
// when it is valid UTF-8.
func (r *ResolvedRequest) CurlCommand() string {
	segments := []string{"curl " + doubleQuote(r.URL.String())}

	if r.Method != MethodGet && r.Method != MethodHead {
		segments = append(segments, "-X "+string(r.Method))
	}

	keys := make([]string, 0, len(r.Header))
	for k := range r.Header {
		if http.CanonicalHeaderKey(k) == "Cookie" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range r.Header[k] {
			segments = append(segments, "-H "+shellQuote(k+": "+v))
		}
	}

	if len(r.Body) > 0 && utf8.Valid(r.Body) {
		segments = append(segments, "-d "+shellQuote(string(r.Body)))
	}

	return strings.Join(segments, curlSeparator)
}

// Redacted returns a copy whose credential headers are masked.
func (r *ResolvedRequest) Redacted() *ResolvedRequest {
	out := *r
	out.Header = redactHeader(r.Header)
	return &out
}

// redactHeader returns a copy of h with credential values masked.
func redactHeader(h http.Header) http.Header {
	out := h.Clone()
	for k, values := range out {
		if !redactedHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		masked := make([]string, len(values))
		for i, v := range values {
			masked[i] = redactValue(v)
		}
		out[k] = masked
	}
	return out
}

// redactValue keeps an auth scheme such as "Bearer" and masks the rest.
func redactValue(v string) string {
	if scheme, _, ok := strings.Cut(v, " "); ok && !strings.ContainsAny(scheme, "=;") {
		return scheme + " [REDACTED]"
	}
	return "[REDACTED]"
}

// doubleQuote wraps s in double quotes, escaping the characters the shell
// still interprets inside them.
func doubleQuote(s string) string {
	return `"` + doubleQuoteEscaper.Replace(s) + `"`
}

var doubleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

// shellQuote wraps s in single quotes, escaping embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
