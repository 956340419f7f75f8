// Package requestmeta resolves request scheme and origin facts.
package requestmeta

import (
	"net/http"
	"net/url"
	"strings"
)

// SchemePolicy controls how the request scheme is resolved.
//
// X-Forwarded-Proto is only honored when TrustForwardedProto is set.
type SchemePolicy struct {
	TrustForwardedProto bool
}

// Scheme returns "https" or "http" for r.
func Scheme(r *http.Request, policy SchemePolicy) string {
	if r == nil {
		return ""
	}
	if policy.TrustForwardedProto {
		switch proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); proto {
		case "http", "https":
			return proto
		}
	}
	if r.URL != nil {
		switch scheme := strings.ToLower(r.URL.Scheme); scheme {
		case "http", "https":
			return scheme
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// IsHTTPS reports whether r should be treated as HTTPS.
func IsHTTPS(r *http.Request, policy SchemePolicy) bool {
	return Scheme(r, policy) == "https"
}

// SameOrigin reports whether Origin, or Referer when Origin is absent,
// names the same scheme, host and port as r.
func SameOrigin(r *http.Request, policy SchemePolicy) bool {
	if r == nil {
		return false
	}
	want := origin{scheme: Scheme(r, policy)}
	want.host, want.port = splitHost(r.Host)
	if want.host == "" && r.URL != nil {
		want.host, want.port = splitHost(r.URL.Host)
	}
	if want.host == "" {
		return false
	}
	if want.port == "" {
		want.port = defaultPort(want.scheme)
	}

	raw := strings.TrimSpace(r.Header.Get("Origin"))
	if raw == "" {
		raw = strings.TrimSpace(r.Header.Get("Referer"))
	}
	if raw == "" {
		return false
	}
	got, ok := parseOrigin(raw)
	return ok && got == want
}

type origin struct {
	scheme string
	host   string
	port   string
}

func parseOrigin(raw string) (origin, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return origin{}, false
	}
	o := origin{
		scheme: strings.ToLower(parsed.Scheme),
		host:   strings.ToLower(parsed.Hostname()),
		port:   parsed.Port(),
	}
	if o.scheme == "" || o.host == "" {
		return origin{}, false
	}
	if o.port == "" {
		o.port = defaultPort(o.scheme)
	}
	return o, o.port != ""
}

func splitHost(raw string) (string, string) {
	parsed, err := url.Parse("//" + strings.TrimSpace(raw))
	if err != nil {
		return "", ""
	}
	return strings.ToLower(parsed.Hostname()), parsed.Port()
}

func defaultPort(scheme string) string {
	switch scheme {
	case "https":
		return "443"
	case "http":
		return "80"
	default:
		return ""
	}
}
