package projects

import (
	"context"
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

func toView(p models.Project, diagramCount int) ProjectView {
	return ProjectView{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Status:       p.Status,
		DiagramCount: diagramCount,
		CreatedAt:    p.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:    p.UpdatedAt.UTC().Format(timeLayout),
	}
}

func validStatus(status string) bool {
	switch status {
	case StatusActive, StatusOnHold, StatusArchived:
		return true
	}
	return false
}

// ListProjects returns every project with its diagram count, newest first.
func ListProjects(ctx context.Context, db *sqlite.DB) ([]ProjectView, error) {
	var projects []models.Project
	counts := map[int64]int{}
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&projects).Order("created_at DESC").Scan(ctx); err != nil {
			return err
		}
		type countRow struct {
			ProjectID int64 `bun:"project_id"`
			N         int   `bun:"n"`
		}
		rows := make([]countRow, 0)
		if err := tx.NewRaw(
			"SELECT project_id, COUNT(*) AS n FROM diagrams GROUP BY project_id",
		).Scan(ctx, &rows); err != nil {
			return err
		}
		for _, row := range rows {
			counts[row.ProjectID] = row.N
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	views := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, toView(p, counts[p.ID]))
	}
	return views, nil
}

// GetProject loads one project.
func GetProject(ctx context.Context, db *sqlite.DB, id int64) (ProjectView, error) {
	var project models.Project
	var count int
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&project).Where("p.id = ?", id).Limit(1).Scan(ctx); err != nil {
			return err
		}
		return tx.NewRaw("SELECT COUNT(*) FROM diagrams WHERE project_id = ?", id).Scan(ctx, &count)
	})
	if err != nil {
		return ProjectView{}, err
	}
	return toView(project, count), nil
}

// CreateInput is the validated project create payload.
type CreateInput struct {
	Name        string
	Description string
	Status      string
}

// CreateProject inserts a project with an audit record.
func CreateProject(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, in CreateInput) (ProjectView, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ProjectView{}, ErrNameRequired
	}
	if in.Status == "" {
		in.Status = StatusActive
	}
	if !validStatus(in.Status) {
		return ProjectView{}, ErrInvalidStatus
	}

	now := time.Now()
	project := models.Project{
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&project).Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, "project.create", "project",
			strconv.FormatInt(project.ID, 10), nil, project)
	})
	if err != nil {
		return ProjectView{}, fmt.Errorf("create project: %w", err)
	}
	return toView(project, 0), nil
}

// UpdateProject applies name/description/status edits, audited.
func UpdateProject(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64, in CreateInput) (ProjectView, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ProjectView{}, ErrNameRequired
	}
	if !validStatus(in.Status) {
		return ProjectView{}, ErrInvalidStatus
	}

	var after models.Project
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var before models.Project
		if err := tx.NewSelect().Model(&before).Where("p.id = ?", id).Limit(1).Scan(ctx); err != nil {
			return err
		}
		after = before
		after.Name = in.Name
		after.Description = strings.TrimSpace(in.Description)
		after.Status = in.Status
		after.UpdatedAt = time.Now()
		if _, err := tx.NewUpdate().Model(&after).WherePK().Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, "project.update", "project",
			strconv.FormatInt(id, 10), before, after)
	})
	if err != nil {
		return ProjectView{}, err
	}
	return toView(after, 0), nil
}

// DeleteProject removes a project and, through the FK cascade, its diagrams.
func DeleteProject(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id int64) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var before models.Project
		if err := tx.NewSelect().Model(&before).Where("p.id = ?", id).Limit(1).Scan(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.Project)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, "project.delete", "project",
			strconv.FormatInt(id, 10), before, nil)
	})
}
