package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cbrosius/hass-bookstack-exporter/internal/entities"
	"github.com/cbrosius/hass-bookstack-exporter/internal/export"
)

// ErrRunNotFound is returned when no export run exists for the given run ID.
var ErrRunNotFound = errors.New("export run not found")

// CreateExportRun records a freshly requested run in pending state.
func (d *Database) CreateExportRun(runID string, trigger entities.RunTrigger, areaFilter string) (*entities.ExportRun, error) {
	run := &entities.ExportRun{
		RunID:      runID,
		Trigger:    trigger,
		Status:     entities.RunStatusPending,
		AreaFilter: areaFilter,
		StartedAt:  time.Now(),
	}
	if err := d.DB.Create(run).Error; err != nil {
		return nil, fmt.Errorf("create export run: %w", err)
	}
	return run, nil
}

// MarkRunRunning flips a pending run to running once a worker picks it up.
func (d *Database) MarkRunRunning(runID string) error {
	return d.updateRun(runID, map[string]any{
		"status":     entities.RunStatusRunning,
		"started_at": time.Now(),
	})
}

// CompleteExportRun stores the result of a finished run.
func (d *Database) CompleteExportRun(runID string, result *export.Result) error {
	finished := result.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	return d.updateRun(runID, map[string]any{
		"status":             entities.RunStatusCompleted,
		"areas_processed":    result.AreasProcessed,
		"chapters_processed": result.ChaptersProcessed,
		"pages_written":      result.PagesWritten,
		"areas_failed":       result.AreasFailed,
		"warnings":           entities.JoinWarnings(result.Warnings),
		"finished_at":        finished,
	})
}

// FailExportRun stores the terminal error of a run that produced no result.
func (d *Database) FailExportRun(runID string, runErr error) error {
	return d.updateRun(runID, map[string]any{
		"status":      entities.RunStatusFailed,
		"error":       runErr.Error(),
		"finished_at": time.Now(),
	})
}

func (d *Database) updateRun(runID string, fields map[string]any) error {
	res := d.DB.Model(&entities.ExportRun{}).Where("run_id = ?", runID).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update export run %s: %w", runID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetExportRun fetches one run by its run ID.
func (d *Database) GetExportRun(runID string) (*entities.ExportRun, error) {
	var run entities.ExportRun
	err := d.DB.Where("run_id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get export run %s: %w", runID, err)
	}
	return &run, nil
}

// RecentExportRuns returns the latest runs, newest first.
func (d *Database) RecentExportRuns(limit int) ([]entities.ExportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []entities.ExportRun
	if err := d.DB.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list export runs: %w", err)
	}
	return runs, nil
}
