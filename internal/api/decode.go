package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decoder turns a response body into a value. v is always a non-nil pointer.
type Decoder interface {
	Decode(data []byte, v any) error
}

// JSONDecoder decodes JSON bodies with encoding/json.
type JSONDecoder struct {
	// DisallowUnknownFields rejects fields missing from the target struct.
	DisallowUnknownFields bool
}

func (d JSONDecoder) Decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if d.DisallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after top-level JSON value")
	}
	return nil
}

// RawDecoder passes the body through untouched. It accepts *[]byte,
// *string and *json.RawMessage targets, and allows empty bodies.
type RawDecoder struct{}

func (RawDecoder) Decode(data []byte, v any) error {
	switch out := v.(type) {
	case *[]byte:
		*out = append([]byte(nil), data...)
	case *string:
		*out = string(data)
	case *json.RawMessage:
		*out = append(json.RawMessage(nil), data...)
	default:
		return fmt.Errorf("raw decoder cannot fill %T", v)
	}
	return nil
}

// Response is a received response with its fully read body.
type Response struct {
	ResponseMeta
	Body []byte
}

// Decode decodes a successful response into T. A nil dec selects JSONDecoder.
// An empty body only decodes into Empty or through RawDecoder.
func Decode[T any](resp *Response, dec Decoder) (T, error) {
	var out T
	if dec == nil {
		dec = JSONDecoder{}
	}
	if _, ok := any(&out).(*Empty); ok {
		return out, nil
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		if _, ok := dec.(RawDecoder); !ok {
			return out, &NetworkError{
				Kind:       KindDecoding,
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("empty response body for %T", out),
				Meta:       &resp.ResponseMeta,
			}
		}
	}
	if err := dec.Decode(resp.Body, &out); err != nil {
		return out, &NetworkError{
			Kind:       KindDecoding,
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
			Message:    fmt.Sprintf("decode %T", out),
			Err:        err,
			Meta:       &resp.ResponseMeta,
		}
	}
	return out, nil
}
