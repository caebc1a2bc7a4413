package client

import (
	"context"
	"fmt"
	"time"

	"sitecanvas/canvas"
)

var _ canvas.Store = (*Client)(nil)

// diagramWire mirrors the server's diagram JSON.
type diagramWire struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Objects     string    `json:"objects"`
	BOQData     string    `json:"boqData"`
	ProjectID   int64     `json:"projectId"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (d diagramWire) record() canvas.DiagramRecord {
	return canvas.DiagramRecord{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Objects:     d.Objects,
		BOQData:     d.BOQData,
		ProjectID:   d.ProjectID,
		UpdatedAt:   d.UpdatedAt,
	}
}

type savePayloadWire struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Objects     string `json:"objects"`
	BOQData     string `json:"boqData"`
	ProjectID   int64  `json:"projectId"`
}

func wirePayload(p canvas.DiagramPayload) savePayloadWire {
	return savePayloadWire{
		Name:        p.Name,
		Description: p.Description,
		Objects:     p.Objects,
		BOQData:     p.BOQData,
		ProjectID:   p.ProjectID,
	}
}

// Diagram fetches one diagram by id.
func (c *Client) Diagram(ctx context.Context, id int64) (canvas.DiagramRecord, error) {
	var d diagramWire
	if err := c.do(ctx, "GET", fmt.Sprintf("/api/diagrams/%d", id), nil, &d); err != nil {
		return canvas.DiagramRecord{}, fmt.Errorf("fetch diagram %d: %w", id, err)
	}
	return d.record(), nil
}

// LatestDiagram fetches the project's most recently updated diagram.
func (c *Client) LatestDiagram(ctx context.Context, projectID int64) (canvas.DiagramRecord, error) {
	var d diagramWire
	path := fmt.Sprintf("/api/diagrams/latest?project_id=%d", projectID)
	if err := c.do(ctx, "GET", path, nil, &d); err != nil {
		return canvas.DiagramRecord{}, fmt.Errorf("fetch latest diagram for project %d: %w", projectID, err)
	}
	return d.record(), nil
}

// CreateDiagram persists a new diagram.
func (c *Client) CreateDiagram(ctx context.Context, p canvas.DiagramPayload) (canvas.DiagramRecord, error) {
	var d diagramWire
	if err := c.do(ctx, "POST", "/api/diagrams", wirePayload(p), &d); err != nil {
		return canvas.DiagramRecord{}, fmt.Errorf("create diagram: %w", err)
	}
	return d.record(), nil
}

// UpdateDiagram overwrites an existing diagram. Last write wins on the server.
func (c *Client) UpdateDiagram(ctx context.Context, id int64, p canvas.DiagramPayload) (canvas.DiagramRecord, error) {
	var d diagramWire
	if err := c.do(ctx, "PUT", fmt.Sprintf("/api/diagrams/%d", id), wirePayload(p), &d); err != nil {
		return canvas.DiagramRecord{}, fmt.Errorf("update diagram %d: %w", id, err)
	}
	return d.record(), nil
}
