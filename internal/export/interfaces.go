package export

import (
	"context"
	"time"

	"github.com/cbrosius/hass-bookstack-exporter/internal/bookstack"
	"github.com/cbrosius/hass-bookstack-exporter/internal/homeassistant"
)

// WikiClient is the slice of the BookStack client the exporter drives.
// Every call is safe to repeat: lookups are by name, writes are full
// replacements.
type WikiClient interface {
	FindOrCreateShelf(ctx context.Context, name, description string) (*bookstack.Shelf, error)
	FindOrCreateBook(ctx context.Context, name, description string) (*bookstack.Book, error)
	AssignBookToShelf(ctx context.Context, bookID, shelfID int) bool
	FindOrCreateChapter(ctx context.Context, bookID int, name, description string) (*bookstack.Chapter, error)
	CreateOrUpdatePage(ctx context.Context, chapterID int, name, markdown string) (*bookstack.Page, error)
	ClearCache()
}

// RegistrySource provides the Home Assistant area/device/state snapshot.
type RegistrySource interface {
	Connect(ctx context.Context) error
	Close() error
	ListAreas(ctx context.Context) ([]homeassistant.Area, error)
	ListDevices(ctx context.Context) ([]homeassistant.Device, error)
	ListStates(ctx context.Context) ([]homeassistant.EntityState, error)
}

// Options controls a single export run.
type Options struct {
	// RunID correlates the run with an externally created record. A fresh
	// ID is generated when empty.
	RunID string

	// AreaFilter, when set, restricts the export to areas whose name
	// contains the filter (case-insensitive).
	AreaFilter string
}

// Result is the outcome of one export run. Partial failures are collected
// in Warnings and the failure counters instead of aborting the run.
type Result struct {
	RunID             string
	AreasProcessed    int
	ChaptersProcessed int
	PagesWritten      int
	AreasFailed       int
	Warnings          []string
	StartedAt         time.Time
	FinishedAt        time.Time
}
