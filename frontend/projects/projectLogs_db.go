package projects

import (
	"context"
	"strconv"
	"strings"

	"github.com/uptrace/bun"

	"sitecanvas/infrastructure/sqlite"
)

// LoadProjectActivity returns the project's audit trail: records on the
// project row itself plus diagram records whose payload carries this
// project id, newest first.
func LoadProjectActivity(ctx context.Context, db *sqlite.DB, projectID int64) (ProjectActivity, error) {
	data := ProjectActivity{
		ProjectID: projectID,
		Rows:      make([]ProjectLogRow, 0),
	}

	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewRaw(`SELECT name, status FROM projects WHERE id = ?`, projectID).
			Scan(ctx, &data.ProjectName, &data.ProjectStatus); err != nil {
			return err
		}

		type row struct {
			CreatedAt  string `bun:"created_at_fmt"`
			Actor      string `bun:"actor"`
			Action     string `bun:"action"`
			EntityType string `bun:"entity_type"`
			EntityID   string `bun:"entity_id"`
			BeforeJSON string `bun:"before_json"`
			AfterJSON  string `bun:"after_json"`
		}
		rows := make([]row, 0)
		if err := tx.NewRaw(`
SELECT
	COALESCE(strftime('%Y-%m-%d %H:%M', al.created_at), '') AS created_at_fmt,
	COALESCE(u.username, '-') AS actor,
	al.action,
	al.entity_type,
	COALESCE(al.entity_id, '') AS entity_id,
	COALESCE(al.before_json, '') AS before_json,
	COALESCE(al.after_json, '') AS after_json
FROM audit_logs al
LEFT JOIN users u ON u.id = al.user_id
WHERE
	(al.entity_type = 'project' AND al.entity_id = ?)
	OR (json_valid(al.before_json) = 1 AND (
		json_extract(al.before_json, '$.ProjectID') = ?
		OR json_extract(al.before_json, '$.projectId') = ?
	))
	OR (json_valid(al.after_json) = 1 AND (
		json_extract(al.after_json, '$.ProjectID') = ?
		OR json_extract(al.after_json, '$.projectId') = ?
	))
ORDER BY al.created_at DESC, al.id DESC`,
			strconv.FormatInt(projectID, 10), projectID, projectID, projectID, projectID,
		).Scan(ctx, &rows); err != nil {
			return err
		}

		for _, r := range rows {
			data.Rows = append(data.Rows, ProjectLogRow{
				CreatedAt:  strings.TrimSpace(r.CreatedAt),
				Actor:      defaultActor(r.Actor),
				Action:     strings.TrimSpace(r.Action),
				EntityType: strings.TrimSpace(r.EntityType),
				EntityID:   strings.TrimSpace(r.EntityID),
				BeforeJSON: strings.TrimSpace(r.BeforeJSON),
				AfterJSON:  strings.TrimSpace(r.AfterJSON),
			})
		}
		return nil
	})
	return data, err
}

func defaultActor(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "-"
	}
	return actor
}
