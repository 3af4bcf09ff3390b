package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/cbrosius/hass-bookstack-exporter/internal/config"
	"github.com/cbrosius/hass-bookstack-exporter/internal/database"
	"github.com/cbrosius/hass-bookstack-exporter/internal/entities"
	"github.com/cbrosius/hass-bookstack-exporter/internal/export"
)

// Runner performs a single export run.
type Runner interface {
	Run(ctx context.Context, opts export.Options) (*export.Result, error)
}

// ExportSyncScheduler manages periodic exports to BookStack.
type ExportSyncScheduler struct {
	db     *database.Database
	runner Runner
	config *config.Config

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSyncing  bool
	cancelFunc context.CancelFunc
}

// NewExportSyncScheduler creates a new scheduler instance
func NewExportSyncScheduler(db *database.Database, runner Runner, cfg *config.Config) *ExportSyncScheduler {
	return &ExportSyncScheduler{
		db:     db,
		runner: runner,
		config: cfg,
		cron:   cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if scheduled exports are enabled
func (s *ExportSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.ExportSync.Enabled {
		log.Printf("Export sync scheduler: disabled")
		return nil
	}

	schedule := s.config.ExportSync.Schedule

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.runSync()
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	if next := s.nextRunLocked(); next != nil {
		log.Printf("Export sync scheduler: started with schedule '%s'. Next run: %v", schedule, next)
	} else {
		log.Printf("Export sync scheduler: started with schedule '%s'", schedule)
	}

	// Monitor for context cancellation
	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler
func (s *ExportSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Export sync scheduler: stopped")
}

// RunNow triggers an immediate export outside the schedule
func (s *ExportSyncScheduler) RunNow() {
	go s.runSync()
}

// IsRunning returns whether the scheduler is active
func (s *ExportSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsSyncing returns whether an export is currently in progress
func (s *ExportSyncScheduler) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// GetNextRunTime returns when the next scheduled export will occur
func (s *ExportSyncScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	return s.nextRunLocked()
}

func (s *ExportSyncScheduler) nextRunLocked() *time.Time {
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runSync performs one export run, skipping if a previous run is still going
func (s *ExportSyncScheduler) runSync() {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		log.Printf("Export sync: skipped (previous export still running)")
		return
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	runID := uuid.NewString()
	if s.db != nil {
		if _, err := s.db.CreateExportRun(runID, entities.RunTriggerSchedule, ""); err != nil {
			log.Printf("Export sync: could not record run %s: %v", runID, err)
		} else if err := s.db.MarkRunRunning(runID); err != nil {
			log.Printf("Export sync: could not mark run %s running: %v", runID, err)
		}
	}

	log.Printf("Export sync: starting run %s", runID)
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := s.runner.Run(ctx, export.Options{RunID: runID})
	if err != nil {
		log.Printf("Export sync: run %s failed: %v", runID, err)
		if s.db != nil {
			if storeErr := s.db.FailExportRun(runID, err); storeErr != nil {
				log.Printf("Export sync: could not record failure for run %s: %v", runID, storeErr)
			}
		}
		return
	}

	if s.db != nil {
		if err := s.db.CompleteExportRun(runID, result); err != nil {
			log.Printf("Export sync: could not record result for run %s: %v", runID, err)
		}
	}

	log.Printf("Export sync: run %s exported %d areas across %d chapters (%d pages, %d failed) in %v",
		runID, result.AreasProcessed, result.ChaptersProcessed, result.PagesWritten,
		result.AreasFailed, time.Since(startTime).Round(time.Millisecond))
}
