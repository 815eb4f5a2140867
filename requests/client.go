package requests

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ClientIP is the peer address of r. With trustProxy, the first valid
// address in X-Forwarded-For, then X-Real-IP, wins over RemoteAddr.
// Header values that do not parse as an IP are ignored.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RequestURL rebuilds the absolute URL the client asked for,
// honoring X-Forwarded-Proto and X-Forwarded-Host set by a proxy.
func RequestURL(r *http.Request) *url.URL {
	u := *r.URL
	switch {
	case r.TLS != nil:
		u.Scheme = "https"
	case r.Header.Get("X-Forwarded-Proto") != "":
		u.Scheme = strings.ToLower(r.Header.Get("X-Forwarded-Proto"))
	default:
		u.Scheme = "http"
	}
	u.Host = r.Host
	if fh := r.Header.Get("X-Forwarded-Host"); fh != "" {
		u.Host = fh
	}
	return &u
}
