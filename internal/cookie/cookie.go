// Package cookie sets and clears the session cookie used by browser
// clients of the API.
package cookie

import (
	"net/http"
	"time"
)

// SessionCookieName is the session cookie for authenticated users.
const SessionCookieName = "marketplace_session"

// Config holds cookie settings shared by every response.
type Config struct {
	// Domain scopes the cookie. Empty means host-only, which is what a
	// single-host deployment wants.
	Domain string

	// Secure requires HTTPS. Enable it everywhere except local development.
	Secure bool
}

// NewConfig creates a new cookie configuration.
func NewConfig(domain string, secure bool) *Config {
	return &Config{Domain: domain, Secure: secure}
}

// SetSession writes the session cookie expiring at expires. The cookie is
// HttpOnly and SameSite=Lax so scripts cannot read it and cross-site POSTs
// do not carry it.
func (c *Config) SetSession(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Domain:   c.Domain,
		Path:     "/",
		Expires:  expires.UTC(),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession expires the session cookie. Domain and Path must match the
// values SetSession used or browsers keep the original.
func (c *Config) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Get retrieves a cookie value from the request.
// Returns empty string if cookie not found.
func Get(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
