package entities

import (
	"strings"
	"time"
)

type RunTrigger string

const (
	RunTriggerAPI      RunTrigger = "api"
	RunTriggerCLI      RunTrigger = "cli"
	RunTriggerSchedule RunTrigger = "schedule"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ExportRun records one export invocation so the operator can see what was
// pushed to BookStack and when.
type ExportRun struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	RunID             string     `gorm:"size:36;uniqueIndex" json:"run_id"`
	Trigger           RunTrigger `gorm:"size:20" json:"trigger"`
	Status            RunStatus  `gorm:"size:20" json:"status"`
	AreaFilter        string     `gorm:"size:255" json:"area_filter,omitempty"`
	AreasProcessed    int        `json:"areas_processed"`
	ChaptersProcessed int        `json:"chapters_processed"`
	PagesWritten      int        `json:"pages_written"`
	AreasFailed       int        `json:"areas_failed"`
	Warnings          string     `gorm:"type:text" json:"warnings,omitempty"`
	Error             string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
}

func (ExportRun) TableName() string {
	return "export_runs"
}

// WarningList splits the stored warnings back into individual entries.
func (r *ExportRun) WarningList() []string {
	if r.Warnings == "" {
		return nil
	}
	return strings.Split(r.Warnings, "\n")
}

// JoinWarnings packs individual warnings into the stored representation.
func JoinWarnings(warnings []string) string {
	return strings.Join(warnings, "\n")
}
