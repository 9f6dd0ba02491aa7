package crawl

import (
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a raw URL into a comparable key: a missing
// scheme defaults to http, the fragment is cleared, and any trailing slash
// is stripped. Malformed input is returned unchanged so callers can treat it
// as an opaque key. Normalizing an already normalized URL is a no-op.
func NormalizeURL(rawURL string) string {
	s := rawURL
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	out := u.String()
	// Trim trailing slashes, but never eat into the scheme separator.
	if i := strings.Index(out, "://"); i >= 0 {
		out = out[:i+3] + strings.TrimRight(out[i+3:], "/")
	}
	return out
}

// SameHost reports whether two URLs share a host, ignoring case.
func SameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Host, ub.Host)
}
