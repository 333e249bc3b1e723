package domain

import "time"

// RunStatus represents the state of a report run
type RunStatus string

const (
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// ReportRun tracks a single report generation for a warehouse
type ReportRun struct {
	ID               string     `json:"id" db:"id"`
	Warehouse        string     `json:"warehouse" db:"warehouse"`
	Branch           string     `json:"branch" db:"branch"`
	SupportWarehouse string     `json:"support_warehouse" db:"support_warehouse"`
	SupportBranch    string     `json:"support_branch" db:"support_branch"`
	Coverage         float64    `json:"coverage" db:"coverage"`
	Status           RunStatus  `json:"status" db:"status"`
	Parts            int        `json:"parts" db:"parts"`
	FileName         string     `json:"file_name" db:"file_name"`
	ErrorMessage     string     `json:"error_message,omitempty" db:"error_message"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	Summary []ClassificationCount `json:"summary,omitempty" db:"-"`
}

// ReportRequest carries the operator's choices for one report.
type ReportRequest struct {
	Warehouse   string
	Coverage    float64
	TransferTag string
	// TransitFile and TransferFile are the raw uploaded documents; either may
	// be empty.
	TransitFile      []byte
	TransitFileName  string
	TransferFile     []byte
	TransferFileName string
}

// ReportResult is what a completed run hands back to the caller.
type ReportResult struct {
	Run      ReportRun             `json:"run"`
	Local    WarehouseRef          `json:"local"`
	Support  WarehouseRef          `json:"support"`
	Summary  []ClassificationCount `json:"summary"`
	FileName string                `json:"file_name"`
	Content  []byte                `json:"-"`
}

// WarehouseOption is an entry of the warehouse catalogue.
type WarehouseOption struct {
	Warehouse string `json:"warehouse"`
	Branch    string `json:"branch"`
	Parts     int    `json:"parts"`
}
