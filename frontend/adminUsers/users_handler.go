package adminusers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sitecanvas/frontend/shared/api"
	sessioncontext "sitecanvas/frontend/shared/context"
	"sitecanvas/infrastructure/audit"
	"sitecanvas/infrastructure/cache"
	"sitecanvas/infrastructure/sqlite"
)

// UsersQueryHandler returns the user list.
func UsersQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := ListUsers(r.Context(), db)
		if err != nil {
			slog.Error("admin users: list failed", slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to load users")
			return
		}
		api.WriteJSON(w, http.StatusOK, users)
	}
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateUserCommandHandler creates a user. Validation failures come back with
// their message; anything else is a generic 500.
func CreateUserCommandHandler(db *sqlite.DB, userCache *cache.UserCache, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessioncontext.GetSessionFromContext(r.Context())
		if !ok {
			api.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		var req createUserRequest
		if err := api.DecodeBody(r, &req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := CreateUser(r.Context(), db, auditSvc, session.UserID, req.Username, req.Password, req.Role)
		if err != nil {
			switch {
			case errors.Is(err, ErrUsernameExists):
				api.Error(w, http.StatusConflict, err.Error())
			case errors.Is(err, ErrUsernameRequired),
				errors.Is(err, ErrPasswordRequired),
				errors.Is(err, ErrInvalidRole):
				api.Error(w, http.StatusBadRequest, err.Error())
			default:
				// Password policy messages are user-facing too.
				api.Error(w, http.StatusBadRequest, err.Error())
			}
			return
		}

		userCache.Add(user.Username, user)
		api.WriteJSON(w, http.StatusCreated, UserView{ID: user.ID, Username: user.Username, Role: user.Role})
	}
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateUserRoleCommandHandler changes a user's role.
func UpdateUserRoleCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessioncontext.GetSessionFromContext(r.Context())
		if !ok {
			api.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || userID <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid user id")
			return
		}
		var req updateRoleRequest
		if err := api.DecodeBody(r, &req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := UpdateUserRole(r.Context(), db, auditSvc, session.UserID, userID, req.Role); err != nil {
			switch {
			case errors.Is(err, ErrInvalidRole):
				api.Error(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, sql.ErrNoRows):
				api.Error(w, http.StatusNotFound, "user not found")
			default:
				slog.Error("admin users: role update failed", slog.Int64("user_id", userID), slog.Any("err", err))
				api.Error(w, http.StatusInternalServerError, "failed to update role")
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
