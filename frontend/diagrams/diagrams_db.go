package diagrams

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"sitecanvas/infrastructure/audit"
	"sitecanvas/infrastructure/sqlite"
	"sitecanvas/models"
)

const timeLayout = "2006-01-02 15:04:05"

func toView(d models.Diagram) DiagramView {
	return DiagramView{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Objects:     d.Objects,
		BOQData:     d.BOQData,
		ProjectID:   d.ProjectID,
		CreatedAt:   d.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:   d.UpdatedAt.UTC().Format(timeLayout),
	}
}

func validate(in *SaveInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.ProjectID <= 0 {
		return ErrProjectRequired
	}
	if in.Objects == "" {
		in.Objects = "[]"
	}
	if in.BOQData == "" {
		in.BOQData = "[]"
	}
	if !json.Valid([]byte(in.Objects)) || !json.Valid([]byte(in.BOQData)) {
		return ErrInvalidContent
	}
	return nil
}

// ListDiagrams returns diagram summaries, optionally scoped to a project,
// most recently updated first.
func ListDiagrams(ctx context.Context, db *sqlite.DB, projectID int64) ([]DiagramSummary, error) {
	summaries := make([]DiagramSummary, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().
			TableExpr("diagrams").
			ColumnExpr("id, name, description, project_id").
			ColumnExpr("strftime('%Y-%m-%d %H:%M:%S', updated_at) AS updated_at").
			OrderExpr("updated_at DESC, id DESC")
		if projectID > 0 {
			q = q.Where("project_id = ?", projectID)
		}
		type row struct {
			ID          int64  `bun:"id"`
			Name        string `bun:"name"`
			Description string `bun:"description"`
			ProjectID   int64  `bun:"project_id"`
			UpdatedAt   string `bun:"updated_at"`
		}
		rows := make([]row, 0)
		if err := q.Scan(ctx, &rows); err != nil {
			return err
		}
		for _, r := range rows {
			summaries = append(summaries, DiagramSummary{
				ID:          r.ID,
				Name:        r.Name,
				Description: r.Description,
				ProjectID:   r.ProjectID,
				UpdatedAt:   r.UpdatedAt,
			})
		}
		return nil
	})
	return summaries, err
}

// GetDiagram loads one diagram with content.
func GetDiagram(ctx context.Context, db *sqlite.DB, id int64) (DiagramView, error) {
	var d models.Diagram
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&d).Where("d.id = ?", id).Limit(1).Scan(ctx)
	})
	if err != nil {
		return DiagramView{}, err
	}
	return toView(d), nil
}

// LatestDiagram returns the most recently updated diagram of a project.
func LatestDiagram(ctx context.Context, db *sqlite.DB, projectID int64) (DiagramView, error) {
	var d models.Diagram
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&d).
			Where("d.project_id = ?", projectID).
			OrderExpr("d.updated_at DESC, d.id DESC").
			Limit(1).
			Scan(ctx)
	})
	if err != nil {
		return DiagramView{}, err
	}
	return toView(d), nil
}

// CreateDiagram validates and inserts, with an audit record in the same tx.
func CreateDiagram(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, in SaveInput) (DiagramView, error) {
	if err := validate(&in); err != nil {
		return DiagramView{}, err
	}

	now := time.Now()
	d := models.Diagram{
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Objects:     in.Objects,
		BOQData:     in.BOQData,
		ProjectID:   in.ProjectID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var count int
		if err := tx.NewRaw("SELECT COUNT(*) FROM projects WHERE id = ?", in.ProjectID).Scan(ctx, &count); err != nil {
			return err
		}
		if count == 0 {
			return ErrProjectRequired
		}
		if _, err := tx.NewInsert().Model(&d).Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, "diagram.create", "diagram",
			strconv.FormatInt(d.ID, 10), nil, auditPayload(d))
	})
	if err != nil {
		return DiagramView{}, fmt.Errorf("create diagram: %w", err)
	}
	return toView(d), nil
}

// UpdateDiagram replaces name/description/content. Last write wins; there is
// no merge.
func UpdateDiagram(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64, in SaveInput) (DiagramView, error) {
	if err := validate(&in); err != nil {
		return DiagramView{}, err
	}

	var after models.Diagram
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var before models.Diagram
		if err := tx.NewSelect().Model(&before).Where("d.id = ?", id).Limit(1).Scan(ctx); err != nil {
			return err
		}
		after = before
		after.Name = in.Name
		after.Description = strings.TrimSpace(in.Description)
		after.Objects = in.Objects
		after.BOQData = in.BOQData
		after.ProjectID = in.ProjectID
		after.UpdatedAt = time.Now()
		if _, err := tx.NewUpdate().Model(&after).WherePK().Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, "diagram.update", "diagram",
			strconv.FormatInt(id, 10), auditPayload(before), auditPayload(after))
	})
	if err != nil {
		return DiagramView{}, err
	}
	return toView(after), nil
}

// DeleteDiagram removes a diagram, audited with the final content. The
// removed row is returned so callers can notify its subscribers.
func DeleteDiagram(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64) (DiagramView, error) {
	var before models.Diagram
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&before).Where("d.id = ?", id).Limit(1).Scan(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.Diagram)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, "diagram.delete", "diagram",
			strconv.FormatInt(id, 10), auditPayload(before), nil)
	})
	if err != nil {
		return DiagramView{}, err
	}
	return toView(before), nil
}

// auditPayload keeps audit rows readable: content is summarized to sizes, not
// duplicated wholesale into the log.
func auditPayload(d models.Diagram) map[string]any {
	return map[string]any{
		"ID":          d.ID,
		"Name":        d.Name,
		"Description": d.Description,
		"ProjectID":   d.ProjectID,
		"ObjectBytes": len(d.Objects),
		"BOQBytes":    len(d.BOQData),
	}
}
