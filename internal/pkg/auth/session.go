package auth

import (
	"net/http"
	"time"
)

// SessionCookie describes the browser cookie that carries the access token
type SessionCookie struct {
	Name   string
	Secure bool
	Domain string
}

// Issue builds the cookie for a freshly issued access token
func (c SessionCookie) Issue(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Clear builds a cookie that removes the session from the browser
func (c SessionCookie) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
