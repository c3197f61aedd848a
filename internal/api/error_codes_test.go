package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{&NetworkError{Kind: KindBadRequest}, CodeBadRequest},
		{&NetworkError{Kind: KindUnauthorized}, CodeUnauthorized},
		{&NetworkError{Kind: KindForbidden}, CodeForbidden},
		{&NetworkError{Kind: KindNotFound}, CodeNotFound},
		{&NetworkError{Kind: KindClientError, StatusCode: 422}, CodeClientError},
		{&NetworkError{Kind: KindServerError, StatusCode: 500}, CodeServerError},
		{&NetworkError{Kind: KindDecoding}, CodeDecodingFailed},
		{&NetworkError{Kind: KindInvalidRequest}, CodeInvalidRequest},
		{&NetworkError{Kind: KindTransport, Err: errors.New("reset")}, CodeTransport},
		{&NetworkError{Kind: KindTransport, Err: context.DeadlineExceeded}, CodeTimeout},
		{&NetworkError{Kind: KindTransport, Err: context.Canceled}, CodeCanceled},
		{&NetworkError{Kind: KindUnknown, StatusCode: 302}, CodeUnknown},
		{errors.New("boom"), CodeUnknown},
	}
	for _, tt := range tests {
		if got := CodeOf(tt.err); got != tt.want {
			t.Errorf("CodeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestErrorCode_IsRetryable(t *testing.T) {
	retryable := map[ErrorCode]bool{
		CodeServerError:    true,
		CodeTransport:      true,
		CodeTimeout:        true,
		CodeNotFound:       false,
		CodeDecodingFailed: false,
		CodeCanceled:       false,
		CodeUnauthorized:   false,
	}
	for code, want := range retryable {
		if got := code.IsRetryable(); got != want {
			t.Errorf("%s.IsRetryable() = %v, want %v", code, got, want)
		}
	}
}

func TestErrorCode_Suggestion(t *testing.T) {
	if CodeUnauthorized.Suggestion() == "" {
		t.Error("unauthorized should have a suggestion")
	}
	if CodeUnknown.Suggestion() != "" {
		t.Error("unknown should have no suggestion")
	}
}

func TestStructuredErrorFromError(t *testing.T) {
	err := &NetworkError{
		Kind:       KindNotFound,
		StatusCode: 404,
		Body:       []byte(`{"error":"no such catch"}`),
		Meta:       &ResponseMeta{URL: "https://api.example.com/catches/9", RequestID: "req-1"},
	}

	se := StructuredErrorFromError(err)
	if se.Code != CodeNotFound {
		t.Errorf("Code = %q", se.Code)
	}
	if se.Retryable {
		t.Error("not found is not retryable")
	}
	if se.Context["status_code"] != 404 {
		t.Errorf("status_code = %v", se.Context["status_code"])
	}
	if se.Context["request_id"] != "req-1" {
		t.Errorf("request_id = %v", se.Context["request_id"])
	}

	data, mErr := json.Marshal(se)
	if mErr != nil {
		t.Fatalf("marshal: %v", mErr)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["code"] != "not_found" {
		t.Errorf("json code = %v", decoded["code"])
	}
}

func TestStructuredErrorFromError_Generic(t *testing.T) {
	if StructuredErrorFromError(nil) != nil {
		t.Error("nil error should give nil")
	}
	se := StructuredErrorFromError(errors.New("boom"))
	if se.Code != CodeUnknown || se.Message != "boom" {
		t.Errorf("unexpected %+v", se)
	}

	existing := NewStructuredError(CodeTimeout, "slow")
	if got := StructuredErrorFromError(existing); got != existing {
		t.Error("existing StructuredError should be returned as is")
	}
	if !existing.Retryable {
		t.Error("timeout should be retryable")
	}
}
