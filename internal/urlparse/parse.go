// Package urlparse extracts resource references from AnglerDiary URLs.
package urlparse

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ParsedURL is a resource reference taken from a web or API URL.
type ParsedURL struct {
	BaseURL      string
	ResourceType string // singular: catch, user
	ResourceID   uuid.UUID
}

var resourceTypes = map[string]string{
	"catches": "catch",
	"users":   "user",
}

// pathPattern matches /{type} or /{type}/{id} with an optional /v1 API
// prefix. Segments after the ID are ignored, e.g. /v1/catches/{id}/photo.
var pathPattern = regexp.MustCompile(`^(?:/v1)?/([a-z]+)(?:/([0-9a-fA-F-]{36})(?:/.*)?)?/?$`)

// Parse extracts the resource from a URL such as
// https://app.anglerdiary.com/catches/6f1c2b4e-0d7a-4f43-9a55-3f1f0c9e8b21.
func Parse(rawURL string) (*ParsedURL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme %q: expected http or https", parsed.Scheme)
	}

	matches := pathPattern.FindStringSubmatch(parsed.Path)
	if matches == nil {
		return nil, fmt.Errorf("unrecognized AnglerDiary URL path %q", parsed.Path)
	}

	singular, ok := resourceTypes[matches[1]]
	if !ok {
		return nil, fmt.Errorf("unsupported resource type %q: expected catches or users", matches[1])
	}

	out := &ParsedURL{
		BaseURL:      parsed.Scheme + "://" + parsed.Host,
		ResourceType: singular,
	}
	if matches[2] != "" {
		if out.ResourceID, err = uuid.Parse(matches[2]); err != nil {
			return nil, fmt.Errorf("invalid resource ID: %w", err)
		}
	}
	return out, nil
}

// HasResourceID reports whether the URL names a single resource.
func (p *ParsedURL) HasResourceID() bool {
	return p.ResourceID != uuid.Nil
}

// IsURL reports whether s looks like an http(s) URL rather than a bare ID.
func IsURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
