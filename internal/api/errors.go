package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
)

// Kind classifies a NetworkError.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidRequest
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindClientError
	KindServerError
	KindDecoding
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid request"
	case KindBadRequest:
		return "bad request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindClientError:
		return "client error"
	case KindServerError:
		return "server error"
	case KindDecoding:
		return "decoding error"
	case KindTransport:
		return "transport error"
	default:
		return "unknown error"
	}
}

// NetworkError is the single failure type returned by a send.
type NetworkError struct {
	Kind Kind
	// StatusCode is set for every kind produced from an HTTP response.
	StatusCode int
	// Body is the raw response body, when one was received.
	Body []byte
	// Message carries the decoder or resolver description.
	Message string
	// Err is the underlying cause (transport, resolve, or decode failure).
	Err error
	// Meta describes the response, when one was received.
	Meta *ResponseMeta
}

func (e *NetworkError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	switch {
	case e.Message != "":
		b.WriteString(": ")
		b.WriteString(e.Message)
		if e.Err != nil {
			b.WriteString(": ")
			b.WriteString(e.Err.Error())
		}
	case e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case len(e.Body) > 0:
		b.WriteString(": ")
		b.WriteString(ServerMessage(e.Body))
	}
	return b.String()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is matches another *NetworkError by kind and status code. A zero status
// code on the target matches any code; the body is ignored.
func (e *NetworkError) Is(target error) bool {
	t, ok := target.(*NetworkError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.StatusCode == 0 || t.StatusCode == e.StatusCode
}

// Timeout reports whether a transport failure was a timeout.
func (e *NetworkError) Timeout() bool {
	if e.Kind != KindTransport || e.Err == nil {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// Canceled reports whether a transport failure was a context cancellation.
func (e *NetworkError) Canceled() bool {
	return e.Kind == KindTransport && errors.Is(e.Err, context.Canceled)
}

// Sentinel targets for errors.Is.
var (
	ErrInvalidRequest = &NetworkError{Kind: KindInvalidRequest}
	ErrBadRequest     = &NetworkError{Kind: KindBadRequest}
	ErrUnauthorized   = &NetworkError{Kind: KindUnauthorized}
	ErrForbidden      = &NetworkError{Kind: KindForbidden}
	ErrNotFound       = &NetworkError{Kind: KindNotFound}
	ErrClientError    = &NetworkError{Kind: KindClientError}
	ErrServerError    = &NetworkError{Kind: KindServerError}
	ErrDecoding       = &NetworkError{Kind: KindDecoding}
	ErrTransport      = &NetworkError{Kind: KindTransport}
	ErrUnknown        = &NetworkError{Kind: KindUnknown}
)

func invalidRequest(format string, args ...any) *NetworkError {
	return &NetworkError{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// statusError maps a non-2xx response to its error kind.
func statusError(status int, body []byte, meta *ResponseMeta) *NetworkError {
	kind := KindUnknown
	switch {
	case status == 400:
		kind = KindBadRequest
	case status == 401:
		kind = KindUnauthorized
	case status == 403:
		kind = KindForbidden
	case status == 404:
		kind = KindNotFound
	case status >= 400 && status < 500:
		kind = KindClientError
	case status >= 500 && status < 600:
		kind = KindServerError
	}
	return &NetworkError{Kind: kind, StatusCode: status, Body: body, Meta: meta}
}

// AsNetworkError extracts a *NetworkError from err.
func AsNetworkError(err error) (*NetworkError, bool) {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

func kindOf(err error) (Kind, bool) {
	if ne, ok := AsNetworkError(err); ok {
		return ne.Kind, true
	}
	return KindUnknown, false
}

// IsNotFound checks if the error is a 404 response.
func IsNotFound(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindNotFound
}

// IsAuthError checks if the error is a 401 or 403 response.
func IsAuthError(err error) bool {
	k, ok := kindOf(err)
	return ok && (k == KindUnauthorized || k == KindForbidden)
}

// IsTransport checks if the error is a transport failure.
func IsTransport(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTransport
}

// IsDecoding checks if the error is a response decoding failure.
func IsDecoding(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindDecoding
}

// IsServerError checks if the error is a 5xx response.
func IsServerError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindServerError
}

// ServerMessage extracts a readable message from an error response body.
// JSON bodies with error, message or errors fields are summarized; other
// bodies are returned trimmed and truncated.
func ServerMessage(body []byte) string {
	var errResp struct {
		Error   any `json:"error"`
		Message any `json:"message"`
		Errors  any `json:"errors"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return truncate(strings.TrimSpace(string(body)), 200)
	}

	var result string
	if s, ok := errResp.Error.(string); ok && s != "" {
		result = s
	} else if s, ok := errResp.Message.(string); ok && s != "" {
		result = s
	}

	if fields := formatFieldErrors(errResp.Errors); fields != "" {
		if result != "" {
			return result + "\n" + fields
		}
		return fields
	}
	if result != "" {
		return result
	}
	return truncate(strings.TrimSpace(string(body)), 200)
}

// formatFieldErrors renders {"errors": {"field": "msg"}} and
// {"errors": {"field": ["msg", ...]}} shapes, sorted for stable output.
func formatFieldErrors(v any) string {
	errMap, ok := v.(map[string]any)
	if !ok || len(errMap) == 0 {
		return ""
	}
	var lines []string
	for field, value := range errMap {
		switch msg := value.(type) {
		case string:
			lines = append(lines, fmt.Sprintf("  %s: %s", field, msg))
		case []any:
			for _, m := range msg {
				if s, ok := m.(string); ok {
					lines = append(lines, fmt.Sprintf("  %s: %s", field, s))
				}
			}
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
