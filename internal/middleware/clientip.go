package middleware

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP returns the caller's address, preferring the first
// X-Forwarded-For hop and then X-Real-IP. Only trust these headers when the
// app is reachable solely through the reverse proxy that sets them.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
