package login

import (
	"net/http"

	"sitecanvas/infrastructure/cache"
	sessioncookie "sitecanvas/infrastructure/session"
	"sitecanvas/infrastructure/sqlite"
)

// LogoutHandler removes session state and clears the cookie.
func LogoutHandler(db *sqlite.DB, sessionCache *cache.UserSessionCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessioncookie.CookieName)
		if err == nil && cookie.Value != "" {
			sessionCache.DeleteSessionBySessionToken(cookie.Value)
			_ = DeleteSessionByToken(r.Context(), db, cookie.Value)
		}
		http.SetCookie(w, sessioncookie.SessionCookie("", -1))
		w.WriteHeader(http.StatusNoContent)
	}
}
