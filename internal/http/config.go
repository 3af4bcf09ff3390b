package http

import (
	"github.com/cbrosius/hass-bookstack-exporter/internal/config"
	"github.com/cbrosius/hass-bookstack-exporter/internal/database"
	"github.com/cbrosius/hass-bookstack-exporter/internal/entities"
	"github.com/cbrosius/hass-bookstack-exporter/internal/scheduler"
	"github.com/cbrosius/hass-bookstack-exporter/internal/tasks"
)

// RunStore provides access to recorded export runs.
type RunStore interface {
	CreateExportRun(runID string, trigger entities.RunTrigger, areaFilter string) (*entities.ExportRun, error)
	GetExportRun(runID string) (*entities.ExportRun, error)
	RecentExportRuns(limit int) ([]entities.ExportRun, error)
	FailExportRun(runID string, runErr error) error
}

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces a long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Database  *database.Database
	AppConfig *config.Config

	// Run store used by the export and runs controllers. Usually the
	// Database, split out so handlers can be tested against a fake.
	RunStore RunStore

	// BookStack access for the shelves listing endpoint
	ShelfLister ShelfLister

	// Task queue client (nil disables API-triggered exports)
	TaskClient *tasks.Client

	// Scheduler for the schedule status endpoint (optional)
	Scheduler *scheduler.ExportSyncScheduler

	// Application info
	Version string
}
