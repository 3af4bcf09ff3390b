package export

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cbrosius/hass-bookstack-exporter/internal/bookstack"
	"github.com/cbrosius/hass-bookstack-exporter/internal/config"
	"github.com/cbrosius/hass-bookstack-exporter/internal/homeassistant"
)

// Compile-time interface implementation checks
var _ WikiClient = (*bookstack.Client)(nil)
var _ RegistrySource = (*homeassistant.Client)(nil)

// Exporter snapshots the Home Assistant registries, classifies areas into
// floor buckets, and materializes the shelf -> book -> chapter -> page tree
// in BookStack. One Run is a single linear pipeline: no retry loop, no
// resumability. Because every write is find-or-create or full-replace,
// re-running after a failure is safe and convergent.
type Exporter struct {
	wiki      WikiClient
	registry  RegistrySource
	shelfName string
	now       func() time.Time
}

// NewExporter wires an exporter to its BookStack client and registry source.
func NewExporter(wiki WikiClient, registry RegistrySource, shelfName string) *Exporter {
	if shelfName == "" {
		shelfName = config.DefaultShelfName
	}
	return &Exporter{
		wiki:      wiki,
		registry:  registry,
		shelfName: shelfName,
		now:       time.Now,
	}
}

// Run executes one export. It returns an error only when nothing could be
// exported at all (no areas, no reachable registry, no shelf/book); per-area
// failures are recorded in the result and do not abort the run.
func (e *Exporter) Run(ctx context.Context, opts Options) (*Result, error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	result := &Result{
		RunID:     runID,
		StartedAt: e.now(),
	}

	// The identity cache must never survive across runs; the remote
	// instance is authoritative.
	e.wiki.ClearCache()

	if err := e.registry.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to home assistant: %w", err)
	}
	defer e.registry.Close()

	snapshots, err := e.snapshot(ctx, opts, result)
	if err != nil {
		return nil, err
	}

	buckets := groupByBucket(snapshots)

	shelf, err := e.wiki.FindOrCreateShelf(ctx, e.shelfName, config.DefaultShelfDescription)
	if err != nil {
		return nil, fmt.Errorf("ensure shelf %q: %w", e.shelfName, err)
	}

	book, err := e.wiki.FindOrCreateBook(ctx, config.AreasBookName, config.AreasBookDescription)
	if err != nil {
		return nil, fmt.Errorf("ensure book %q: %w", config.AreasBookName, err)
	}

	// Shelf linking is best-effort; a failed link must not abort the export.
	if !e.wiki.AssignBookToShelf(ctx, book.ID, shelf.ID) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("could not assign book %q to shelf %q", book.Name, shelf.Name))
	}

	for _, bucketName := range BucketOrder() {
		areas := buckets[bucketName]
		if len(areas) == 0 {
			continue
		}

		chapter, err := e.wiki.FindOrCreateChapter(ctx, book.ID, bucketName,
			ChapterDescription(bucketName, areas[0]))
		if err != nil {
			result.AreasFailed += len(areas)
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("chapter %q: %v", bucketName, err))
			log.Printf("Skipping %d area(s): failed to ensure chapter %q: %v", len(areas), bucketName, err)
			continue
		}
		result.ChaptersProcessed++

		for _, snap := range areas {
			content := GeneratePageContent(snap, e.now())
			if _, err := e.wiki.CreateOrUpdatePage(ctx, chapter.ID, PageTitle(snap.Area.Name), content); err != nil {
				result.AreasFailed++
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("area %q: %v", snap.Area.Name, err))
				log.Printf("Failed to write page for area %q: %v", snap.Area.Name, err)
				continue
			}
			result.PagesWritten++
			result.AreasProcessed++
		}
	}

	result.FinishedAt = e.now()
	log.Printf("Export %s finished: %d areas, %d chapters, %d pages, %d failed, %d warnings",
		result.RunID, result.AreasProcessed, result.ChaptersProcessed,
		result.PagesWritten, result.AreasFailed, len(result.Warnings))

	return result, nil
}

// snapshot collects areas (mandatory), devices, and entities (both
// best-effort) into per-area bundles.
func (e *Exporter) snapshot(ctx context.Context, opts Options, result *Result) ([]AreaSnapshot, error) {
	areas, err := e.registry.ListAreas(ctx)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}

	if opts.AreaFilter != "" {
		filter := strings.ToLower(opts.AreaFilter)
		filtered := areas[:0]
		for _, area := range areas {
			if strings.Contains(strings.ToLower(area.Name), filter) {
				filtered = append(filtered, area)
			}
		}
		areas = filtered
	}

	if len(areas) == 0 {
		if opts.AreaFilter != "" {
			return nil, fmt.Errorf("no areas match filter %q, nothing to export", opts.AreaFilter)
		}
		return nil, fmt.Errorf("no areas found in home assistant, nothing to export")
	}

	// Device and state failures degrade to zero counts plus a warning; the
	// areas themselves still get exported.
	devicesByArea := make(map[string][]homeassistant.Device)
	devices, err := e.registry.ListDevices(ctx)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("device registry unavailable: %v", err))
		log.Printf("Proceeding without device data: %v", err)
	} else {
		for _, device := range devices {
			if device.AreaID != "" {
				devicesByArea[device.AreaID] = append(devicesByArea[device.AreaID], device)
			}
		}
	}

	entitiesByArea := make(map[string][]homeassistant.EntityState)
	states, err := e.registry.ListStates(ctx)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("state snapshot unavailable: %v", err))
		log.Printf("Proceeding without entity data: %v", err)
	} else {
		for _, state := range states {
			if areaID := state.Attributes.AreaID; areaID != "" {
				entitiesByArea[areaID] = append(entitiesByArea[areaID], state)
			}
		}
	}

	snapshots := make([]AreaSnapshot, 0, len(areas))
	for _, area := range areas {
		snapshots = append(snapshots, AreaSnapshot{
			Area:     area,
			Devices:  devicesByArea[area.ID],
			Entities: entitiesByArea[area.ID],
		})
	}
	return snapshots, nil
}

// groupByBucket classifies every snapshot into its floor bucket, preserving
// registry order within each bucket.
func groupByBucket(snapshots []AreaSnapshot) map[string][]AreaSnapshot {
	buckets := make(map[string][]AreaSnapshot)
	for _, snap := range snapshots {
		bucket := ClassifyArea(snap.Area.Name)
		buckets[bucket] = append(buckets[bucket], snap)
	}
	return buckets
}
