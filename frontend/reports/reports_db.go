package reports

import (
	"context"
	"fmt"
	"math"

	"github.com/uptrace/bun"

	"sitecanvas/canvas"
	"sitecanvas/infrastructure/sqlite"
	"sitecanvas/models"
)

func roundPercent(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*1000) / 10
}

// LoadProjectProgress decodes every diagram of the project and tallies object
// statuses and assigned contract value. Diagrams whose stored content fails to
// decode count as empty rather than failing the whole report.
func LoadProjectProgress(ctx context.Context, db *sqlite.DB, projectID int64) (ProjectProgress, error) {
	var project models.Project
	diagramRows := make([]models.Diagram, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&project).Where("p.id = ?", projectID).Limit(1).Scan(ctx); err != nil {
			return err
		}
		return tx.NewSelect().Model(&diagramRows).
			Where("d.project_id = ?", projectID).
			OrderExpr("d.updated_at DESC, d.id DESC").
			Scan(ctx)
	})
	if err != nil {
		return ProjectProgress{}, fmt.Errorf("load project %d: %w", projectID, err)
	}

	progress := ProjectProgress{
		ProjectID:     project.ID,
		ProjectName:   project.Name,
		ProjectStatus: project.Status,
		DiagramCount:  len(diagramRows),
		Diagrams:      make([]DiagramProgress, 0, len(diagramRows)),
	}

	for _, d := range diagramRows {
		dp := DiagramProgress{DiagramID: d.ID, Name: d.Name}

		objects, err := canvas.DecodeObjects(d.Objects)
		if err != nil {
			objects = nil
		}
		for _, obj := range objects {
			dp.Total++
			switch obj.Status {
			case canvas.StatusCompleted:
				dp.Completed++
			case canvas.StatusInProgress:
				dp.InProgress++
			case canvas.StatusPlanned:
				dp.Planned++
			default:
				dp.NotStarted++
			}
		}
		dp.Percent = roundPercent(dp.Completed, dp.Total)

		if items, err := canvas.DecodeBOQ(d.BOQData); err == nil {
			values := canvas.SummarizeValues(items, objects)
			progress.ContractValue += values.TotalContract
			progress.CompletedValue += values.Completed
			progress.PlannedValue += values.Planned
		}

		progress.Total += dp.Total
		progress.Completed += dp.Completed
		progress.InProgress += dp.InProgress
		progress.Planned += dp.Planned
		progress.NotStarted += dp.NotStarted
		progress.Diagrams = append(progress.Diagrams, dp)
	}

	progress.Percent = roundPercent(progress.Completed, progress.Total)
	progress.RemainingValue = math.Max(0, progress.ContractValue-progress.CompletedValue-progress.PlannedValue)
	return progress, nil
}
