package entity

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

// RunStatus represents the state of a pipeline run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunStep names one stage of a pipeline run.
type RunStep string

const (
	RunStepCrawl   RunStep = "crawl"
	RunStepAnalyze RunStep = "analyze"
)

// DefaultRunSteps is the full crawl then analyze sequence.
var DefaultRunSteps = []RunStep{RunStepCrawl, RunStepAnalyze}

// PipelineRun records one crawl/analyze execution.
type PipelineRun struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	RunID        string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"run_id"`
	Trigger      string         `gorm:"type:varchar(20);not null" json:"trigger"`
	Status       RunStatus      `gorm:"type:varchar(20);not null" json:"status"`
	Report       datatypes.JSON `json:"report"`
	ErrorMessage sql.NullString `json:"error_message" swaggertype:"string"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  sql.NullTime   `json:"completed_at" swaggertype:"string" format:"date-time"`
}

// TableName specifies the table name for the PipelineRun model.
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}
