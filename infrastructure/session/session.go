package session

import (
	"net/http"
	"time"
)

// CookieName carries the session token for both the JSON API and the websocket
// upgrade handshake.
const CookieName = "sitecanvas_session"

// SessionCookie builds the session cookie; a negative maxAge clears it.
func SessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   false,
	}
}

// DefaultExpiry is the lifetime of a fresh login session.
func DefaultExpiry() time.Time {
	return time.Now().Add(12 * time.Hour)
}
