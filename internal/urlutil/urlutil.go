// Package urlutil joins storefront base URLs with paths and compares origins.
package urlutil

import (
	"net/url"
	"strings"
)

// BuildAbsolute builds an absolute URL from a base origin and a path. An already
// absolute path is returned unchanged.
func BuildAbsolute(base, path string) string {
	base = NormalizeBaseURL(base)
	if path == "" {
		return base
	}
	if IsHTTPURL(path) {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/")
}

// IsHTTPURL reports whether s is an absolute http or https URL with a host.
func IsHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Origin returns scheme://host[:port] of an absolute URL, or "" when s is not one.
func Origin(s string) string {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// SameOrigin reports whether two absolute URLs share scheme, host and port.
func SameOrigin(a, b string) bool {
	oa := Origin(a)
	return oa != "" && oa == Origin(b)
}
