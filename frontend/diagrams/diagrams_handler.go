package diagrams

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

// DiagramsQueryHandler lists diagram summaries, optionally filtered by
// ?project_id=.
func DiagramsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var projectID int64
		if raw := r.URL.Query().Get("project_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				api.Error(w, http.StatusBadRequest, "invalid project_id filter")
				return
			}
			projectID = id
		}
		summaries, err := ListDiagrams(r.Context(), db, projectID)
		if err != nil {
			slog.Error("diagrams: list failed", slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to load diagrams")
			return
		}
		api.WriteJSON(w, http.StatusOK, summaries)
	}
}

// DiagramQueryHandler returns one diagram with content.
func DiagramQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r)
		if !ok {
			api.Error(w, http.StatusBadRequest, "invalid diagram id")
			return
		}
		view, err := GetDiagram(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				api.Error(w, http.StatusNotFound, "diagram not found")
				return
			}
			slog.Error("diagrams: load failed", slog.Int64("diagram_id", id), slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to load diagram")
			return
		}
		api.WriteJSON(w, http.StatusOK, view)
	}
}

// LatestDiagramQueryHandler returns the most recently updated diagram of a
// project, for editors opening a project without a diagram id.
func LatestDiagramQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := strconv.ParseInt(r.URL.Query().Get("project_id"), 10, 64)
		if err != nil || projectID <= 0 {
			api.Error(w, http.StatusBadRequest, "project_id is required")
			return
		}
		view, err := LatestDiagram(r.Context(), db, projectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				api.Error(w, http.StatusNotFound, "project has no diagrams")
				return
			}
			slog.Error("diagrams: latest lookup failed", slog.Int64("project_id", projectID), slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to load diagram")
			return
		}
		api.WriteJSON(w, http.StatusOK, view)
	}
}

func writeSaveError(w http.ResponseWriter, err error, id int64) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		api.Error(w, http.StatusNotFound, "diagram not found")
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrProjectRequired),
		errors.Is(err, ErrInvalidContent):
		api.Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("diagrams: save failed", slog.Int64("diagram_id", id), slog.Any("err", err))
		api.Error(w, http.StatusInternalServerError, "failed to save diagram")
	}
}

// CreateDiagramCommandHandler persists a new diagram and announces it on the
// sync hub.
func CreateDiagramCommandHandler(db *sqlite.DB, auditSvc *audit.Service, hub *SyncHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in SaveInput
		if err := api.DecodeBody(r, &in); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		view, err := CreateDiagram(r.Context(), db, auditSvc, actorID(r), in)
		if err != nil {
			writeSaveError(w, err, 0)
			return
		}
		hub.Broadcast(SyncEvent{Type: EventNewDiagram, DiagramID: view.ID, ProjectID: view.ProjectID})
		api.WriteJSON(w, http.StatusCreated, view)
	}
}

// UpdateDiagramCommandHandler saves diagram content and notifies subscribers.
func UpdateDiagramCommandHandler(db *sqlite.DB, auditSvc *audit.Service, hub *SyncHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r)
		if !ok {
			api.Error(w, http.StatusBadRequest, "invalid diagram id")
			return
		}
		var in SaveInput
		if err := api.DecodeBody(r, &in); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		view, err := UpdateDiagram(r.Context(), db, auditSvc, actorID(r), id, in)
		if err != nil {
			writeSaveError(w, err, id)
			return
		}
		hub.Broadcast(SyncEvent{Type: EventDiagramUpdated, DiagramID: view.ID, ProjectID: view.ProjectID})
		api.WriteJSON(w, http.StatusOK, view)
	}
}

// DeleteDiagramCommandHandler removes a diagram and tells anyone still
// subscribed to reload.
func DeleteDiagramCommandHandler(db *sqlite.DB, auditSvc *audit.Service, hub *SyncHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r)
		if !ok {
			api.Error(w, http.StatusBadRequest, "invalid diagram id")
			return
		}
		view, err := DeleteDiagram(r.Context(), db, auditSvc, actorID(r), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				api.Error(w, http.StatusNotFound, "diagram not found")
				return
			}
			slog.Error("diagrams: delete failed", slog.Int64("diagram_id", id), slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to delete diagram")
			return
		}
		hub.Broadcast(SyncEvent{Type: EventDiagramUpdated, DiagramID: view.ID, ProjectID: view.ProjectID})
		w.WriteHeader(http.StatusNoContent)
	}
}
