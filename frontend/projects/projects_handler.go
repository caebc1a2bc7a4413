package projects

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
	"sitecanvas/infrastructure/sqlite"
)

func urlID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func actorID(r *http.Request) int64 {
	if session, ok := sessioncontext.GetSessionFromContext(r.Context()); ok {
		return session.UserID
	}
	return 0
}

// ProjectsQueryHandler lists projects.
func ProjectsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := ListProjects(r.Context(), db)
		if err != nil {
			slog.Error("projects: list failed", slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to load projects")
			return
		}
		api.WriteJSON(w, http.StatusOK, views)
	}
}

// ProjectQueryHandler returns one project.
func ProjectQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r)
		if !ok {
			api.Error(w, http.StatusBadRequest, "invalid project id")
			return
		}
		view, err := GetProject(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				api.Error(w, http.StatusNotFound, "project not found")
				return
			}
			slog.Error("projects: load failed", slog.Int64("project_id", id), slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to load project")
			return
		}
		api.WriteJSON(w, http.StatusOK, view)
	}
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// CreateProjectCommandHandler creates a project.
func CreateProjectCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req projectRequest
		if err := api.DecodeBody(r, &req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		view, err := CreateProject(r.Context(), db, auditSvc, actorID(r), CreateInput(req))
		if err != nil {
			if errors.Is(err, ErrNameRequired) || errors.Is(err, ErrInvalidStatus) {
				api.Error(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("projects: create failed", slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to create project")
			return
		}
		api.WriteJSON(w, http.StatusCreated, view)
	}
}

// UpdateProjectCommandHandler edits a project.
func UpdateProjectCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r)
		if !ok {
			api.Error(w, http.StatusBadRequest, "invalid project id")
			return
		}
		var req projectRequest
		if err := api.DecodeBody(r, &req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		view, err := UpdateProject(r.Context(), db, auditSvc, actorID(r), id, CreateInput(req))
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				api.Error(w, http.StatusNotFound, "project not found")
			case errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidStatus):
				api.Error(w, http.StatusBadRequest, err.Error())
			default:
				slog.Error("projects: update failed", slog.Int64("project_id", id), slog.Any("err", err))
				api.Error(w, http.StatusInternalServerError, "failed to update project")
			}
			return
		}
		api.WriteJSON(w, http.StatusOK, view)
	}
}

// DeleteProjectCommandHandler removes a project and its diagrams.
func DeleteProjectCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r)
		if !ok {
			api.Error(w, http.StatusBadRequest, "invalid project id")
			return
		}
		if err := DeleteProject(r.Context(), db, auditSvc, actorID(r), id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				api.Error(w, http.StatusNotFound, "project not found")
				return
			}
			slog.Error("projects: delete failed", slog.Int64("project_id", id), slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to delete project")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
