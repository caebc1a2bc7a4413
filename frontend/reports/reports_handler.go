package reports

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"sitecanvas/frontend/shared/api"
	"sitecanvas/infrastructure/sqlite"
)

func projectIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// ProjectProgressQueryHandler returns the aggregated progress of a project as
// JSON.
func ProjectProgressQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := projectIDParam(r)
		if !ok {
			api.Error(w, http.StatusBadRequest, "invalid project id")
			return
		}
		progress, err := LoadProjectProgress(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				api.Error(w, http.StatusNotFound, "project not found")
				return
			}
			slog.Error("reports: progress failed", slog.Int64("project_id", id), slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to compute progress")
			return
		}
		api.WriteJSON(w, http.StatusOK, progress)
	}
}

// ProjectReportPDFQueryHandler streams the progress report as a PDF. The QR
// code links back to the live progress endpoint under baseURL; with an empty
// baseURL the code is omitted.
func ProjectReportPDFQueryHandler(db *sqlite.DB, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := projectIDParam(r)
		if !ok {
			api.Error(w, http.StatusBadRequest, "invalid project id")
			return
		}
		progress, err := LoadProjectProgress(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				api.Error(w, http.StatusNotFound, "project not found")
				return
			}
			slog.Error("reports: progress failed", slog.Int64("project_id", id), slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to compute progress")
			return
		}

		shareURL := ""
		if baseURL != "" {
			shareURL = fmt.Sprintf("%s/api/projects/%d/progress", baseURL, id)
		}
		pdfBytes, err := renderProgressReportPDF(progress, shareURL, time.Now())
		if err != nil {
			slog.Error("reports: pdf render failed", slog.Int64("project_id", id), slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to render report")
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=progress-report-%d.pdf", id))
		if _, err := w.Write(pdfBytes); err != nil {
			slog.Error("reports: pdf write failed", slog.Int64("project_id", id), slog.Any("err", err))
		}
	}
}
