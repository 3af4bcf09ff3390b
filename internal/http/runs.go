package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cbrosius/hass-bookstack-exporter/internal/database"
)

// RunsController exposes the export run history.
type RunsController struct {
	store RunStore
}

func NewRunsController(store RunStore) *RunsController {
	return &RunsController{store: store}
}

// List returns the most recent runs, newest first. The optional "limit"
// query parameter caps the result (default 20).
func (r *RunsController) List(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	runs, err := r.store.RecentExportRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list export runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

// Get returns a single run by its run ID.
func (r *RunsController) Get(c *gin.Context) {
	runID := c.Param("run_id")

	run, err := r.store.GetExportRun(runID)
	if errors.Is(err, database.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "export run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load export run"})
		return
	}

	c.JSON(http.StatusOK, run)
}
