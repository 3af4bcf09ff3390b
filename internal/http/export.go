package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cbrosius/hass-bookstack-exporter/internal/entities"
	"github.com/cbrosius/hass-bookstack-exporter/internal/tasks"
)

// ExportRequest is the optional body of a manual export trigger.
type ExportRequest struct {
	// AreaFilter restricts the export to areas whose name contains the
	// filter (case-insensitive). Empty exports everything.
	AreaFilter string `json:"area_filter"`
}

// ExportController accepts export triggers and hands them to the task queue.
type ExportController struct {
	store      RunStore
	taskClient *tasks.Client
}

func NewExportController(store RunStore, taskClient *tasks.Client) *ExportController {
	return &ExportController{
		store:      store,
		taskClient: taskClient,
	}
}

// Trigger records a pending run and enqueues the export task. The run ID is
// returned immediately so the caller can poll /api/runs/:run_id.
func (e *ExportController) Trigger(c *gin.Context) {
	if e.taskClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "task queue is disabled, use the CLI export command instead",
		})
		return
	}

	var req ExportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	runID := uuid.NewString()
	if e.store != nil {
		if _, err := e.store.CreateExportRun(runID, entities.RunTriggerAPI, req.AreaFilter); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record export run"})
			return
		}
	}

	_, err := e.taskClient.Add(tasks.ExportTask{
		RunID:      runID,
		AreaFilter: req.AreaFilter,
	}).Save()
	if err != nil {
		log.Printf("Failed to enqueue export run %s: %v", runID, err)
		if e.store != nil {
			if storeErr := e.store.FailExportRun(runID, err); storeErr != nil {
				log.Printf("Failed to record enqueue failure for run %s: %v", runID, storeErr)
			}
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue export"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id": runID,
		"status": string(entities.RunStatusPending),
	})
}
