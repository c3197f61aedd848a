package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode is a machine-readable error identifier for scripted callers.
type ErrorCode string

const (
	CodeBadRequest     ErrorCode = "bad_request"
	CodeUnauthorized   ErrorCode = "unauthorized"
	CodeForbidden      ErrorCode = "forbidden"
	CodeNotFound       ErrorCode = "not_found"
	CodeClientError    ErrorCode = "client_error"
	CodeServerError    ErrorCode = "server_error"
	CodeDecodingFailed ErrorCode = "decoding_failed"
	CodeTransport      ErrorCode = "transport"
	CodeTimeout        ErrorCode = "timeout"
	CodeCanceled       ErrorCode = "canceled"
	CodeInvalidRequest ErrorCode = "invalid_request"
	CodeUnknown        ErrorCode = "unknown"
)

// IsRetryable returns true if errors with this code may succeed on retry.
// The core never retries; this is advice for callers.
func (c ErrorCode) IsRetryable() bool {
	switch c {
	case CodeServerError, CodeTransport, CodeTimeout:
		return true
	default:
		return false
	}
}

// Suggestion returns a human-readable hint for resolving this error.
func (c ErrorCode) Suggestion() string {
	switch c {
	case CodeUnauthorized:
		return "Run 'flownet auth login' to store a valid token"
	case CodeForbidden:
		return "Check that your account may access this resource"
	case CodeNotFound:
		return "Verify the path and resource ID"
	case CodeBadRequest:
		return "Check the request parameters"
	case CodeClientError:
		return "The server rejected the request; check the response body"
	case CodeServerError:
		return "The server encountered an error; try again later"
	case CodeDecodingFailed:
		return "The response did not match the expected shape; inspect it with 'flownet request'"
	case CodeTransport:
		return "Check network connectivity and the base URL"
	case CodeTimeout:
		return "The request timed out; raise --timeout or retry"
	case CodeInvalidRequest:
		return "Check the base URL and request path"
	default:
		return ""
	}
}

// CodeOf returns the ErrorCode for err.
func CodeOf(err error) ErrorCode {
	ne, ok := AsNetworkError(err)
	if !ok {
		return CodeUnknown
	}
	switch ne.Kind {
	case KindInvalidRequest:
		return CodeInvalidRequest
	case KindBadRequest:
		return CodeBadRequest
	case KindUnauthorized:
		return CodeUnauthorized
	case KindForbidden:
		return CodeForbidden
	case KindNotFound:
		return CodeNotFound
	case KindClientError:
		return CodeClientError
	case KindServerError:
		return CodeServerError
	case KindDecoding:
		return CodeDecodingFailed
	case KindTransport:
		switch {
		case ne.Canceled():
			return CodeCanceled
		case ne.Timeout():
			return CodeTimeout
		}
		return CodeTransport
	default:
		return CodeUnknown
	}
}

// StructuredError provides machine-readable error information for JSON output.
type StructuredError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	Suggestion string         `json:"suggestion,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

func (e *StructuredError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// MarshalJSON implements json.Marshaler.
func (e *StructuredError) MarshalJSON() ([]byte, error) {
	type alias StructuredError
	return json.Marshal((*alias)(e))
}

// NewStructuredError creates a StructuredError from a code and message.
func NewStructuredError(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:       code,
		Message:    message,
		Retryable:  code.IsRetryable(),
		Suggestion: code.Suggestion(),
	}
}

// StructuredErrorFromError converts any error to a StructuredError.
func StructuredErrorFromError(err error) *StructuredError {
	if err == nil {
		return nil
	}

	var se *StructuredError
	if errors.As(err, &se) {
		return se
	}

	ne, ok := AsNetworkError(err)
	if !ok {
		return NewStructuredError(CodeUnknown, err.Error())
	}

	code := CodeOf(err)
	out := NewStructuredError(code, ne.Error())
	ctx := map[string]any{}
	if ne.StatusCode != 0 {
		ctx["status_code"] = ne.StatusCode
	}
	if ne.Meta != nil {
		if ne.Meta.URL != "" {
			ctx["url"] = ne.Meta.URL
		}
		if ne.Meta.RequestID != "" {
			ctx["request_id"] = ne.Meta.RequestID
		}
	}
	if len(ctx) > 0 {
		out.Context = ctx
	}
	return out
}
