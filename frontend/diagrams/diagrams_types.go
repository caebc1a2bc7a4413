package diagrams

import "errors"

// DiagramView is the wire form of a stored diagram. Objects and BOQData are
// passed through as the JSON text the editor saved; the server never rewrites
// canvas content.
type DiagramView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Objects     string `json:"objects"`
	BOQData     string `json:"boqData"`
	ProjectID   int64  `json:"projectId"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// DiagramSummary is the list form, content omitted.
type DiagramSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ProjectID   int64  `json:"projectId"`
	UpdatedAt   string `json:"updatedAt"`
}

// SaveInput is the validated create/update payload.
type SaveInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Objects     string `json:"objects"`
	BOQData     string `json:"boqData"`
	ProjectID   int64  `json:"projectId"`
}

var (
	ErrNameRequired    = errors.New("diagram name is required")
	ErrProjectRequired = errors.New("a project is required")
	ErrInvalidContent  = errors.New("objects and boqData must be valid JSON")
)
