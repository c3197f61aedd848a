package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
)

// QueryItem is one flattened query string entry.
type QueryItem struct {
	Key   string
	Value string
}

// allowedSet marks bytes that are emitted as-is by escape.
type allowedSet [256]bool

func newAllowedSet(extra string) *allowedSet {
	var s allowedSet
	for c := 'a'; c <= 'z'; c++ {
		s[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		s[c] = true
	}
	for c := '0'; c <= '9'; c++ {
		s[c] = true
	}
	for _, c := range "-._~" + extra {
		s[c] = true
	}
	return &s
}

var (
	// Query components keep the RFC 3986 query characters except the pair
	// separators & = + and the fragment marker #.
	queryAllowed = newAllowedSet("/?:@!$'()*,;")
	// Form bodies keep only unreserved characters plus / and ?.
	formAllowed = newAllowedSet("/?")
)

const upperhex = "0123456789ABCDEF"

// escape percent-encodes every byte of s not in allowed. Input is treated as
// raw data, so an existing % becomes %25.
func escape(s string, allowed *allowedSet) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !allowed[s[i]] {
			n++
		}
	}
	if n == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if allowed[c] {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

// QueryItems flattens params into ordered query entries. Nested values use
// bracket notation.
func QueryItems(p Params) ([]QueryItem, error) {
	pairs, err := flatten(p)
	if err != nil {
		return nil, err
	}
	items := make([]QueryItem, len(pairs))
	for i, kv := range pairs {
		items[i] = QueryItem{Key: kv.key, Value: kv.value}
	}
	return items, nil
}

// EncodeQuery renders query items as key=value pairs joined by &.
func EncodeQuery(items []QueryItem) string {
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = escape(item.Key, queryAllowed) + "=" + escape(item.Value, queryAllowed)
	}
	return strings.Join(parts, "&")
}

// EncodeForm renders params as an application/x-www-form-urlencoded body.
//
// Nested mappings flatten to parent[child] and lists to key[]; the composite
// key is escaped once as a whole, so brackets appear as %5B and %5D.
func EncodeForm(p Params) (string, error) {
	pairs, err := flatten(p)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(pairs))
	for i, kv := range pairs {
		parts[i] = escape(kv.key, formAllowed) + "=" + escape(kv.value, formAllowed)
	}
	return strings.Join(parts, "&"), nil
}

// EncodeJSON renders params as an ordered JSON object. Nil params encode as
// an empty body.
func EncodeJSON(p Params) ([]byte, error) {
	if len(p) == 0 {
		return nil, nil
	}
	if err := checkDepth(p, 0); err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode json body: %w", err)
	}
	return data, nil
}

func checkDepth(p Params, depth int) error {
	if depth > MaxParamDepth {
		return fmt.Errorf("params nested deeper than %d levels", MaxParamDepth)
	}
	for _, e := range p {
		if nested, ok := e.Value.(Params); ok {
			if err := checkDepth(nested, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewBoundary returns a unique multipart boundary token.
func NewBoundary() string {
	return "flownet-" + uuid.New().String()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// EncodeMultipart builds a multipart/form-data body with the given boundary.
// Scalar params become plain form fields; parts become file fields with a
// Content-Type header.
func EncodeMultipart(p Params, parts []MultipartPart, boundary string) ([]byte, error) {
	pairs, err := flatten(p)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(boundary); err != nil {
		return nil, fmt.Errorf("set multipart boundary: %w", err)
	}

	for _, kv := range pairs {
		if err := w.WriteField(kv.key, kv.value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", kv.key, err)
		}
	}

	for _, part := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(part.FieldName), quoteEscaper.Replace(part.FileName)))
		mimeType := part.MIMEType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		h.Set("Content-Type", mimeType)
		fw, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create part %s: %w", part.FieldName, err)
		}
		if _, err := fw.Write(part.Data); err != nil {
			return nil, fmt.Errorf("write part %s: %w", part.FieldName, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), nil
}
