// Package validation checks user supplied base URLs and inputs before they
// reach the request pipeline.
//
// Base URLs must be absolute http(s) URLs. Plain http is only accepted for
// loopback and private hosts unless SetAllowInsecure(true) is called or
// FLOWNET_ALLOW_INSECURE is set. Cloud metadata endpoints are always refused.
package validation

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

var allowInsecure atomic.Bool

var privateNetworks []*net.IPNet

func init() {
	v, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv("FLOWNET_ALLOW_INSECURE")))
	allowInsecure.Store(v)

	privateCIDRs := []string{
		"10.0.0.0/8",     // RFC1918
		"172.16.0.0/12",  // RFC1918
		"192.168.0.0/16", // RFC1918
		"100.64.0.0/10",  // RFC6598
		"127.0.0.0/8",    // loopback
		"169.254.0.0/16", // link local
		"fc00::/7",       // unique local
		"fe80::/10",      // link local
		"::1/128",        // loopback
	}
	privateNetworks = make([]*net.IPNet, 0, len(privateCIDRs))
	for _, cidr := range privateCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		privateNetworks = append(privateNetworks, network)
	}
}

// SetAllowInsecure permits plain http for any host.
func SetAllowInsecure(enabled bool) {
	allowInsecure.Store(enabled)
}

// AllowInsecureEnabled reports whether plain http is allowed for public hosts.
func AllowInsecureEnabled() bool {
	return allowInsecure.Load()
}

// ValidateBaseURL checks that rawURL can serve as a client base URL:
//   - http or https scheme with a hostname
//   - no embedded credentials and no fragment
//   - https unless the host is local or insecure mode is on
//   - not a cloud metadata endpoint
func ValidateBaseURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return fmt.Errorf("URL exceeds maximum length of %d characters", MaxURLLength)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: only http and https are allowed, got %q", parsed.Scheme)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return fmt.Errorf("URL must contain a hostname")
	}
	if parsed.User != nil {
		return fmt.Errorf("URL must not contain credentials; use 'flownet auth login' instead")
	}
	if parsed.Fragment != "" {
		return fmt.Errorf("URL must not contain a fragment")
	}
	if isCloudMetadata(hostname) {
		return fmt.Errorf("cloud metadata endpoints are not allowed")
	}
	if parsed.Scheme == "http" && !allowInsecure.Load() && !IsLocalHost(hostname) {
		return fmt.Errorf("plain http is only allowed for local hosts (set FLOWNET_ALLOW_INSECURE=1 to override)")
	}
	return nil
}

// IsLocalHost reports whether hostname is localhost or a loopback/private IP.
func IsLocalHost(hostname string) bool {
	lower := strings.ToLower(strings.Trim(hostname, "[]"))
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return true
	}
	ip := net.ParseIP(lower)
	if ip == nil {
		return false
	}
	if ip.IsUnspecified() {
		return true
	}
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func isCloudMetadata(hostname string) bool {
	lower := strings.ToLower(hostname)
	switch lower {
	case "169.254.169.254", "metadata.google.internal", "metadata", "instance-data", "fd00:ec2::254":
		return true
	}
	return strings.HasSuffix(lower, ".metadata.google.internal")
}
