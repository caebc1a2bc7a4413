package projects

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"sitecanvas/frontend/shared/api"
	"sitecanvas/infrastructure/sqlite"
)

// ProjectActivityQueryHandler returns the project's audit trail.
func ProjectActivityQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r)
		if !ok {
			api.Error(w, http.StatusBadRequest, "invalid project id")
			return
		}

		data, err := LoadProjectActivity(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				api.Error(w, http.StatusNotFound, "project not found")
				return
			}
			slog.Error("projects: activity load failed", slog.Int64("project_id", id), slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to load project activity")
			return
		}
		api.WriteJSON(w, http.StatusOK, data)
	}
}
