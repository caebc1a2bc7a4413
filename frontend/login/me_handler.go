package login

import (
	"net/http"

	"sitecanvas/frontend/shared/api"
	sessioncontext "sitecanvas/frontend/shared/context"
)

// MeHandler returns the authenticated user, so clients can gate their editing
// UI on the role without a second round trip.
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessioncontext.GetSessionFromContext(r.Context())
		if !ok {
			api.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		api.WriteJSON(w, http.StatusOK, loginResponse{
			ID:       session.User.ID,
			Username: session.User.Username,
			Role:     session.User.Role,
		})
	}
}
