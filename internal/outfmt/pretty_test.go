package outfmt

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestResponsePrinter_StatusAndHeaders(t *testing.T) {
	var buf bytes.Buffer
	p := NewResponsePrinter(&buf, false)

	p.PrintStatus(http.StatusNotFound, 2048, 35*time.Millisecond)
	p.PrintHeader(http.Header{"X-B": {"2"}, "Content-Type": {"application/json"}})

	want := "HTTP 404 Not Found  (2K, 35ms)\nContent-Type: application/json\nX-B: 2\n\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestResponsePrinter_Color(t *testing.T) {
	var buf bytes.Buffer
	NewResponsePrinter(&buf, true).PrintStatus(http.StatusOK, 10, time.Millisecond)
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected ANSI escapes, got %q", buf.String())
	}
}

func TestResponsePrinter_Body(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        []byte
		query       string
		want        string
	}{
		{"json indented", "application/json; charset=utf-8", []byte(`{"a":[1]}`), "", "{\n  \"a\": [\n    1\n  ]\n}\n"},
		{"json query", "application/problem+json", []byte(`{"a":{"b":"c"}}`), ".a.b", "\"c\"\n"},
		{"text", "text/plain", []byte("hello"), "", "hello\n"},
		{"empty", "application/json", nil, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewResponsePrinter(&buf, false).PrintBody(tt.contentType, tt.body, tt.query, false); err != nil {
				t.Fatalf("PrintBody: %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("PrintBody = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponsePrinter_BinaryBody(t *testing.T) {
	var buf bytes.Buffer
	if err := NewResponsePrinter(&buf, false).PrintBody("image/png", []byte{0x89, 0x50, 0xff, 0xfe}, "", false); err != nil {
		t.Fatalf("PrintBody: %v", err)
	}
	if !strings.Contains(buf.String(), "binary data not shown (4B)") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestResponsePrinter_QueryNeedsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewResponsePrinter(&buf, false).PrintBody("text/plain", []byte("hi"), ".a", false); err == nil {
		t.Error("expected an error for a query on a text body")
	}
}
