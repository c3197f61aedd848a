package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// ResolvedRequest is a fully built request. It is created once per send and
// not modified afterwards.
type ResolvedRequest struct {
	Method Method
	URL    *url.URL
	Header http.Header
	Body   []byte
	// Boundary is the multipart boundary token, empty for other bodies.
	Boundary string
}

// HTTPRequest returns a new *http.Request bound to ctx. Each call gets its
// own header map and body reader.
func (r *ResolvedRequest) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, string(r.Method), r.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = r.Header.Clone()
	if len(r.Body) > 0 {
		data := r.Body
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}
	return req, nil
}

type resolveOptions struct {
	userAgent string
	boundary  string
}

// ResolveOption customizes Resolve.
type ResolveOption func(*resolveOptions)

// UserAgent sets the derived User-Agent header.
func UserAgent(ua string) ResolveOption {
	return func(o *resolveOptions) { o.userAgent = ua }
}

// Boundary fixes the multipart boundary instead of generating one.
func Boundary(b string) ResolveOption {
	return func(o *resolveOptions) { o.boundary = b }
}

// Resolve builds the concrete request for d against baseURL.
func Resolve(d Descriptor, baseURL string, opts ...ResolveOption) (*ResolvedRequest, error) {
	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}

	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, &NetworkError{Kind: KindInvalidRequest, Message: "invalid base URL", Err: err}
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, invalidRequest("base URL %q must be absolute", baseURL)
	}

	method := d.Method()
	if method == "" {
		method = MethodGet
	}

	items, err := QueryItems(d.QueryParams())
	if err != nil {
		return nil, &NetworkError{Kind: KindInvalidRequest, Message: "encode query", Err: err}
	}

	query := base.RawQuery
	if encoded := EncodeQuery(items); encoded != "" {
		if query != "" {
			query += "&"
		}
		query += encoded
	}

	// The path is literal: reserved characters such as ?, # and % are
	// percent-encoded by EscapedPath rather than interpreted.
	u := *base
	u.Path = joinPath(base.Path, d.Path())
	u.RawPath = ""
	u.RawQuery = query
	u.Fragment = ""
	u.RawFragment = ""

	resolved := &ResolvedRequest{
		Method: method,
		URL:    &u,
		Header: make(http.Header),
	}
	resolved.Header.Set("Accept", "application/json")
	if o.userAgent != "" {
		resolved.Header.Set("User-Agent", o.userAgent)
	}
	if token := d.AuthToken(); token != "" {
		resolved.Header.Set("Authorization", "Bearer "+token)
	}

	if method.allowsBody() {
		if err := resolved.encodeBody(d, o.boundary); err != nil {
			return nil, err
		}
	}

	explicit := d.Headers()
	keys := make([]string, 0, len(explicit))
	for k := range explicit {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		resolved.Header.Set(k, explicit[k])
	}

	return resolved, nil
}

func (r *ResolvedRequest) encodeBody(d Descriptor, boundary string) error {
	contentType := d.ContentType()
	if contentType == "" {
		contentType = ContentTypeJSON
	}

	var err error
	switch contentType {
	case ContentTypeJSON:
		r.Body, err = EncodeJSON(d.BodyParams())
		r.Header.Set("Content-Type", string(ContentTypeJSON))
	case ContentTypeURLEncoded:
		var form string
		form, err = EncodeForm(d.BodyParams())
		r.Body = []byte(form)
		r.Header.Set("Content-Type", string(ContentTypeURLEncoded))
	case ContentTypeMultipart:
		if boundary == "" {
			boundary = NewBoundary()
		}
		r.Boundary = boundary
		r.Body, err = EncodeMultipart(d.BodyParams(), d.MultipartParts(), boundary)
		r.Header.Set("Content-Type", string(ContentTypeMultipart)+"; boundary="+boundary)
	default:
		return invalidRequest("unsupported content type %q", contentType)
	}
	if err != nil {
		return &NetworkError{Kind: KindInvalidRequest, Message: "encode body", Err: err}
	}
	if len(r.Body) == 0 {
		r.Body = nil
	}
	return nil
}

// joinPath appends path to base, inserting a slash only when neither side
// supplies one.
func joinPath(base, path string) string {
	if path == "" {
		return base
	}
	if strings.HasSuffix(base, "/") || strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}
