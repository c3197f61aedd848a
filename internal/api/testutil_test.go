package api

import (
	"bytes"
	"log/slog"
	"testing"
)

type testUser struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// testRequest is a configurable descriptor for tests.
type testRequest[T any] struct {
	Endpoint[T]

	path        string
	method      Method
	contentType ContentType
	query       Params
	body        Params
	headers     Headers
	parts       []MultipartPart
	token       string
	decoder     Decoder
}

func (r testRequest[T]) Path() string { return r.path }

func (r testRequest[T]) Method() Method {
	if r.method == "" {
		return MethodGet
	}
	return r.method
}

func (r testRequest[T]) ContentType() ContentType {
	if r.contentType == "" {
		return ContentTypeJSON
	}
	return r.contentType
}

func (r testRequest[T]) QueryParams() Params             { return r.query }
func (r testRequest[T]) BodyParams() Params              { return r.body }
func (r testRequest[T]) Headers() Headers                { return r.headers }
func (r testRequest[T]) MultipartParts() []MultipartPart { return r.parts }
func (r testRequest[T]) AuthToken() string               { return r.token }
func (r testRequest[T]) Decoder() Decoder                { return r.decoder }

// newBufferLogger returns a slog logger that accepts every level.
func newBufferLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), &buf
}
