package login

import (
	"database/sql"
	"net/http"
	"strings"

	"sitecanvas/frontend/shared/api"
	"sitecanvas/infrastructure/cache"
	sessioncookie "sitecanvas/infrastructure/session"
	"sitecanvas/infrastructure/sqlite"
	"sitecanvas/models"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// CreateLoginHandler authenticates the user and issues a session cookie.
func CreateLoginHandler(db *sqlite.DB, sessionCache *cache.UserSessionCache, userCache *cache.UserCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := api.DecodeBody(r, &req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		username := strings.TrimSpace(req.Username)
		password := strings.TrimSpace(req.Password)
		if username == "" || password == "" {
			api.Error(w, http.StatusBadRequest, "username and password are required")
			return
		}

		user, err := authenticateUser(r.Context(), db, username, password)
		if err != nil {
			if err == sql.ErrNoRows {
				api.Error(w, http.StatusUnauthorized, "invalid username or password")
				return
			}
			api.Error(w, http.StatusInternalServerError, "authentication failed")
			return
		}

		session := newSession(user)
		if err := persistSession(r.Context(), db, session); err != nil {
			api.Error(w, http.StatusInternalServerError, "failed to create session")
			return
		}

		sessionCache.AddSession(session)
		userCache.Add(user.Username, user)

		http.SetCookie(w, sessioncookie.SessionCookie(session.ID, 12*60*60))
		api.WriteJSON(w, http.StatusOK, loginResponse{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
		})
	}
}

func newSession(user models.User) models.Session {
	return models.Session{
		ID:        newSessionToken(),
		UserID:    user.ID,
		User:      user,
		UserRoles: []string{user.Role},
		ExpiresAt: sessioncookie.DefaultExpiry(),
	}
}
