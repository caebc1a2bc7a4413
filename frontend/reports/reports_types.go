package reports

// DiagramProgress is the per-diagram status breakdown.
type DiagramProgress struct {
	DiagramID  int64   `json:"diagramId"`
	Name       string  `json:"name"`
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	InProgress int     `json:"inProgress"`
	Planned    int     `json:"planned"`
	NotStarted int     `json:"notStarted"`
	Percent    float64 `json:"progressPercent"`
}

// ProjectProgress aggregates object statuses and assigned contract value
// across every diagram of a project. Percent counts completed objects only;
// in_progress contributes to the planned value bucket, matching the dashboard
// roll-up.
type ProjectProgress struct {
	ProjectID      int64             `json:"projectId"`
	ProjectName    string            `json:"projectName"`
	ProjectStatus  string            `json:"projectStatus"`
	DiagramCount   int               `json:"diagramCount"`
	Total          int               `json:"total"`
	Completed      int               `json:"completed"`
	InProgress     int               `json:"inProgress"`
	Planned        int               `json:"planned"`
	NotStarted     int               `json:"notStarted"`
	Percent        float64           `json:"progressPercent"`
	ContractValue  float64           `json:"contractValue"`
	CompletedValue float64           `json:"completedValue"`
	PlannedValue   float64           `json:"plannedValue"`
	RemainingValue float64           `json:"remainingValue"`
	Diagrams       []DiagramProgress `json:"diagrams"`
}
