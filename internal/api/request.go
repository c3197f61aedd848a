package api

import (
	"net/http"
	"strings"
)

// Method is an HTTP request method. Any token is accepted; the constants
// cover the methods the AnglerDiary API uses.
type Method string

const (
	MethodGet     Method = http.MethodGet
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodHead    Method = http.MethodHead
	MethodOptions Method = http.MethodOptions
)

// ParseMethod normalizes a method name to upper case.
func ParseMethod(s string) Method {
	return Method(strings.ToUpper(strings.TrimSpace(s)))
}

// allowsBody reports whether requests with this method may carry a body.
func (m Method) allowsBody() bool {
	return m != MethodGet && m != MethodHead
}

// ContentType selects how body params are serialized.
type ContentType string

const (
	ContentTypeJSON       ContentType = "application/json"
	ContentTypeURLEncoded ContentType = "application/x-www-form-urlencoded"
	ContentTypeMultipart  ContentType = "multipart/form-data"
)

// ParseContentType accepts the short names used on the command line as well
// as full MIME types.
func ParseContentType(s string) (ContentType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json", string(ContentTypeJSON):
		return ContentTypeJSON, true
	case "form", "urlencoded", "url-encoded", string(ContentTypeURLEncoded):
		return ContentTypeURLEncoded, true
	case "multipart", string(ContentTypeMultipart):
		return ContentTypeMultipart, true
	default:
		return "", false
	}
}

// Headers holds explicit request headers set by a descriptor.
type Headers map[string]string

// MultipartPart is one file attachment of a multipart body.
type MultipartPart struct {
	FieldName string
	FileName  string
	MIMEType  string
	Data      []byte
}

// Descriptor is the untyped view of a request used by the resolver.
type Descriptor interface {
	// Path is appended to the client's base URL path.
	Path() string
	Method() Method
	ContentType() ContentType
	QueryParams() Params
	// BodyParams is used for JSON and URL-encoded bodies, and as the scalar
	// fields of a multipart body.
	BodyParams() Params
	Headers() Headers
	MultipartParts() []MultipartPart
	// AuthToken, when non-empty, is sent as a bearer token.
	AuthToken() string
	// Decoder returns the response decoder; nil selects the default JSON decoder.
	Decoder() Decoder
}

// Request describes one endpoint call returning T.
//
// Implementations embed Endpoint[T] for defaults and override what they need:
//
//	type GetProfile struct {
//		api.Endpoint[Profile]
//		UserID string
//	}
//
//	func (r GetProfile) Path() string { return "/users/" + r.UserID }
type Request[T any] interface {
	Descriptor
	result() T
}

// Endpoint supplies default descriptor values: GET, JSON content, no params,
// no headers, no token, default decoder. It binds the result type T.
type Endpoint[T any] struct{}

func (Endpoint[T]) Method() Method                  { return MethodGet }
func (Endpoint[T]) ContentType() ContentType        { return ContentTypeJSON }
func (Endpoint[T]) QueryParams() Params             { return nil }
func (Endpoint[T]) BodyParams() Params              { return nil }
func (Endpoint[T]) Headers() Headers                { return nil }
func (Endpoint[T]) MultipartParts() []MultipartPart { return nil }
func (Endpoint[T]) AuthToken() string               { return "" }
func (Endpoint[T]) Decoder() Decoder                { return nil }

func (Endpoint[T]) result() (zero T) { return zero }

// Empty is the result type for endpoints that return no content.
type Empty struct{}
