package util

import (
	"net/url"
	"strings"
)

// NormalizeDomain reduces a URL to its canonical domain key: the lowercase
// hostname with a leading "www." stripped. Malformed input is returned
// unchanged rather than failing; callers that see their input echoed back
// should treat the value as a degraded signal, not a hostname.
func NormalizeDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return rawURL
	}

	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// IsAnalyzableURL reports whether a navigation target qualifies for policy
// analysis. Only http and https pages do; browser-internal schemes never.
func IsAnalyzableURL(rawURL string) bool {
	return strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
}
