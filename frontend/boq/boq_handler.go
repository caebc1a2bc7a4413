package boq

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sitecanvas/canvas"
	"sitecanvas/frontend/diagrams"
	"sitecanvas/frontend/shared/api"
	"sitecanvas/infrastructure/sqlite"
)

const maxUploadBytes = 10 << 20

// ImportBOQCommandHandler parses an uploaded xlsx bill of quantities and
// returns the line items as JSON. The editor merges the result into its local
// boq table and persists it through the normal diagram save.
func ImportBOQCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid upload")
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			api.Error(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()

		items, err := ParseWorkbook(file)
		if err != nil {
			slog.Warn("boq import rejected", slog.Any("err", err))
			api.Error(w, http.StatusBadRequest, "could not read workbook")
			return
		}
		api.WriteJSON(w, http.StatusOK, items)
	}
}

// ExportBOQQueryHandler streams a diagram's bill of quantities as an xlsx
// attachment.
func ExportBOQQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid diagram id")
			return
		}

		view, err := diagrams.GetDiagram(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				api.Error(w, http.StatusNotFound, "diagram not found")
				return
			}
			slog.Error("boq export: load failed", slog.Int64("diagram_id", id), slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to load diagram")
			return
		}

		items, err := canvas.DecodeBOQ(view.BOQData)
		if err != nil {
			slog.Error("boq export: stored data unreadable", slog.Int64("diagram_id", id), slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "stored boq data is unreadable")
			return
		}

		f, err := BuildWorkbook(items)
		if err != nil {
			slog.Error("boq export: build failed", slog.Int64("diagram_id", id), slog.Any("err", err))
			api.Error(w, http.StatusInternalServerError, "failed to build workbook")
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=boq-diagram-%d.xlsx", id))
		if err := f.Write(w); err != nil {
			slog.Error("boq export: write failed", slog.Int64("diagram_id", id), slog.Any("err", err))
		}
	}
}
