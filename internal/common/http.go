package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the best-effort originating address of the request, or
// fallback when none of the sources carries a usable value. Forwarding headers
// take precedence over the socket peer, matching chi's RealIP ordering.
func ClientIP(r *http.Request, fallback string) string {
	if r == nil {
		return fallback
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := normalizeIP(first); ip != "" {
			return ip
		}
	}
	if ip := normalizeIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if ip := normalizeIP(r.RemoteAddr); ip != "" {
		return ip
	}
	return fallback
}

func normalizeIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	raw = strings.Trim(raw, "[]")
	if net.ParseIP(raw) == nil {
		return ""
	}
	return raw
}
