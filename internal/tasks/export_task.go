package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/cbrosius/hass-bookstack-exporter/internal/export"
)

// ExportTask runs a full wiki export in the background. The run record is
// created by the caller before enqueueing so the run ID can be handed back
// immediately.
type ExportTask struct {
	RunID      string `json:"run_id"`
	AreaFilter string `json:"area_filter,omitempty"`
}

// Config returns the queue configuration for export tasks. Exports are not
// retried: a failed run is recorded as failed and the next trigger starts a
// fresh one.
func (t ExportTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "bookstack_export",
		MaxAttempts: 1,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ExportRunner performs a single export run.
type ExportRunner interface {
	Run(ctx context.Context, opts export.Options) (*export.Result, error)
}

// RunStore persists export run state transitions.
type RunStore interface {
	MarkRunRunning(runID string) error
	CompleteExportRun(runID string, result *export.Result) error
	FailExportRun(runID string, runErr error) error
}

// ExportProcessor creates a processor function for ExportTask.
func ExportProcessor(runner ExportRunner, store RunStore) backlite.QueueProcessor[ExportTask] {
	return func(ctx context.Context, task ExportTask) error {
		if runner == nil {
			return fmt.Errorf("exporter not configured")
		}

		if store != nil {
			if err := store.MarkRunRunning(task.RunID); err != nil {
				log.Printf("[TASK] Could not mark run %s as running: %v", task.RunID, err)
			}
		}

		result, err := runner.Run(ctx, export.Options{
			RunID:      task.RunID,
			AreaFilter: task.AreaFilter,
		})
		if err != nil {
			if store != nil {
				if storeErr := store.FailExportRun(task.RunID, err); storeErr != nil {
					log.Printf("[TASK] Could not record failure for run %s: %v", task.RunID, storeErr)
				}
			}
			return fmt.Errorf("export run %s: %w", task.RunID, err)
		}

		if store != nil {
			if err := store.CompleteExportRun(task.RunID, result); err != nil {
				log.Printf("[TASK] Could not record result for run %s: %v", task.RunID, err)
			}
		}

		log.Printf("[TASK] Export run %s finished: %d areas, %d chapters, %d pages, %d failed",
			task.RunID, result.AreasProcessed, result.ChaptersProcessed, result.PagesWritten, result.AreasFailed)

		return nil
	}
}

// NewExportQueue creates a backlite queue for export tasks.
func NewExportQueue(runner ExportRunner, store RunStore) backlite.Queue {
	return backlite.NewQueue(ExportProcessor(runner, store))
}
