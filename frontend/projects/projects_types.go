package projects

import "errors"

// ProjectView is one project as returned by the API.
type ProjectView struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	DiagramCount int    `json:"diagramCount"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

var (
	ErrNameRequired  = errors.New("project name is required")
	ErrInvalidStatus = errors.New("status must be active, on_hold or archived")
)

// Project statuses.
const (
	StatusActive   = "active"
	StatusOnHold   = "on_hold"
	StatusArchived = "archived"
)
