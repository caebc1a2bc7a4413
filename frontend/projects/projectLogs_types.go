package projects

// ProjectActivity is the audit trail of a project and the diagrams in it.
type ProjectActivity struct {
	ProjectID     int64           `json:"projectId"`
	ProjectName   string          `json:"projectName"`
	ProjectStatus string          `json:"projectStatus"`
	Rows          []ProjectLogRow `json:"rows"`
}

// ProjectLogRow is one audit record, actor resolved to a username.
type ProjectLogRow struct {
	CreatedAt  string `json:"createdAt"`
	Actor      string `json:"actor"`
	Action     string `json:"action"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	BeforeJSON string `json:"beforeJson"`
	AfterJSON  string `json:"afterJson"`
}
