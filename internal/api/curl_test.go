package api

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestCurlCommand_Post(t *testing.T) {
	r := &ResolvedRequest{
		Method: MethodPost,
		URL:    mustURL(t, "https://api.example.com/catches"),
		Header: http.Header{
			"Content-Type": {"application/json"},
			"Cookie":       {"session=1"},
			"Accept":       {"application/json"},
		},
		Body: []byte(`{"note":"it's big"}`),
	}

	want := strings.Join([]string{
		`curl "https://api.example.com/catches"`,
		`-X POST`,
		`-H 'Accept: application/json'`,
		`-H 'Content-Type: application/json'`,
		`-d '{"note":"it'\''s big"}'`,
	}, " \\\n\t")

	if got := r.CurlCommand(); got != want {
		t.Errorf("CurlCommand() =\n%s\nwant\n%s", got, want)
	}
}

func TestCurlCommand_GetOmitsMethodAndBinaryBody(t *testing.T) {
	r := &ResolvedRequest{
		Method: MethodGet,
		URL:    mustURL(t, "https://api.example.com/users?active=true"),
		Header: http.Header{},
	}
	if got := r.CurlCommand(); got != `curl "https://api.example.com/users?active=true"` {
		t.Errorf("CurlCommand() = %q", got)
	}

	r = &ResolvedRequest{
		Method: MethodPut,
		URL:    mustURL(t, "https://api.example.com/photo"),
		Header: http.Header{},
		Body:   []byte{0xff, 0xfe, 0x00},
	}
	if got := r.CurlCommand(); strings.Contains(got, "-d ") {
		t.Errorf("binary body should be omitted: %q", got)
	}
}

func TestRedacted(t *testing.T) {
	r := &ResolvedRequest{
		Method: MethodGet,
		URL:    mustURL(t, "https://api.example.com/me"),
		Header: http.Header{
			"Authorization": {"Bearer secret"},
			"X-Auth-Token":  {"secret"},
			"Accept":        {"application/json"},
		},
	}

	redacted := r.Redacted()
	if got := redacted.Header.Get("Authorization"); got != "Bearer [REDACTED]" {
		t.Errorf("Authorization = %q", got)
	}
	if got := redacted.Header.Get("X-Auth-Token"); got != "[REDACTED]" {
		t.Errorf("X-Auth-Token = %q", got)
	}
	if got := redacted.Header.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q", got)
	}
	if got := r.Header.Get("Authorization"); got != "Bearer secret" {
		t.Errorf("original request was modified: %q", got)
	}
	if strings.Contains(redacted.CurlCommand(), "secret") {
		t.Error("redacted curl leaks the token")
	}
}

func TestCurlCommand_EscapesShellExpansionInURL(t *testing.T) {
	tests := []struct {
		name string
		req  RawRequest
		want string
	}{
		{
			"query value",
			RawRequest{RequestPath: "/v1/catches", Query: P("q", "$(id)")},
			`curl "https://api.example.com/v1/catches?q=\$(id)"`,
		},
		{
			"path segment",
			RawRequest{RequestPath: "/v1/spots/$HOME"},
			`curl "https://api.example.com/v1/spots/\$HOME"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := Resolve(tt.req, "https://api.example.com")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			got := resolved.CurlCommand()
			if first, _, _ := strings.Cut(got, curlSeparator); first != tt.want {
				t.Errorf("CurlCommand() starts with %q, want %q", first, tt.want)
			}
			for i := 0; i < len(got); i++ {
				if got[i] == '$' && (i == 0 || got[i-1] != '\\') {
					t.Errorf("unescaped $ at %d in %q", i, got)
				}
			}
		})
	}
}

func TestDoubleQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", `"plain"`},
		{`a"b`, `"a\"b"`},
		{"$(id)", `"\$(id)"`},
		{"`id`", "\"\\`id\\`\""},
		{`back\slash`, `"back\\slash"`},
	}
	for _, tt := range tests {
		if got := doubleQuote(tt.in); got != tt.want {
			t.Errorf("doubleQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactHeader_Cookies(t *testing.T) {
	h := http.Header{
		"Cookie":     {"session=abc; theme=dark"},
		"Set-Cookie": {"session=abc; Path=/; HttpOnly", "csrf=xyz"},
		"Accept":     {"application/json"},
	}

	got := redactHeader(h)
	if v := got.Get("Cookie"); v != "[REDACTED]" {
		t.Errorf("Cookie = %q", v)
	}
	if v := got.Values("Set-Cookie"); len(v) != 2 || v[0] != "[REDACTED]" || v[1] != "[REDACTED]" {
		t.Errorf("Set-Cookie = %q", v)
	}
	if v := got.Get("Accept"); v != "application/json" {
		t.Errorf("Accept = %q", v)
	}
	if v := h.Get("Cookie"); v != "session=abc; theme=dark" {
		t.Errorf("original header was modified: %q", v)
	}
}

func TestShellQuote(t *testing.T) {
	if got := shellQuote("a'b"); got != `'a'\''b'` {
		t.Errorf("shellQuote = %q", got)
	}
}
