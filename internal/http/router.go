package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	exportController := NewExportController(cfg.RunStore, cfg.TaskClient)
	runsController := NewRunsController(cfg.RunStore)
	connectionController := NewConnectionController(cfg.AppConfig, cfg.ShelfLister)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Export endpoints
	router.POST("/api/export", exportController.Trigger)
	router.GET("/api/runs", runsController.List)
	router.GET("/api/runs/:run_id", runsController.Get)

	// BookStack connectivity endpoints
	router.POST("/api/connection/test", connectionController.Test)
	router.GET("/api/shelves", connectionController.Shelves)

	// Scheduler status endpoint
	if cfg.Scheduler != nil {
		router.GET("/api/schedule", func(c *gin.Context) {
			resp := gin.H{
				"enabled":  cfg.AppConfig.ExportSync.Enabled,
				"schedule": cfg.AppConfig.ExportSync.Schedule,
				"running":  cfg.Scheduler.IsRunning(),
				"syncing":  cfg.Scheduler.IsSyncing(),
			}
			if next := cfg.Scheduler.GetNextRunTime(); next != nil {
				resp["next_run"] = next
			}
			c.JSON(http.StatusOK, resp)
		})
	}

	return router
}
