package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cbrosius/hass-bookstack-exporter/internal/bookstack"
	"github.com/cbrosius/hass-bookstack-exporter/internal/config"
	"github.com/cbrosius/hass-bookstack-exporter/internal/database"
	"github.com/cbrosius/hass-bookstack-exporter/internal/export"
	"github.com/cbrosius/hass-bookstack-exporter/internal/homeassistant"
	http_controllers "github.com/cbrosius/hass-bookstack-exporter/internal/http"
	"github.com/cbrosius/hass-bookstack-exporter/internal/scheduler"
	"github.com/cbrosius/hass-bookstack-exporter/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown: wait for interrupt signal, then drain with a
	// timeout.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop the task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Home Assistant BookStack exporter v%s", version)

	if err := cfg.Validate(); err != nil {
		log.Printf("WARNING: %v. Exports will fail until the configuration is complete.", err)
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// BookStack client is shared across all exports. The identity cache is
	// cleared at the start of every run.
	bookstackClient := bookstack.NewClient(bookstack.Config{
		BaseURL:             cfg.BookStack.BaseURL,
		TokenID:             cfg.BookStack.TokenID,
		TokenSecret:         cfg.BookStack.TokenSecret,
		Timeout:             time.Duration(cfg.BookStack.TimeoutSeconds) * time.Second,
		MinRequestInterval:  cfg.BookStack.MinRequestInterval,
		NestedChapterCreate: cfg.BookStack.NestedChapterCreate,
	})

	// The Home Assistant client connects lazily at the start of each run.
	registry := homeassistant.NewClient(cfg.HomeAssistant.BaseURL, cfg.HomeAssistant.Token)

	exporter := export.NewExporter(bookstackClient, registry, cfg.BookStack.ShelfName)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewExportQueue(exporter, db),
		)

		// Start task workers in background
		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	} else {
		log.Printf("Task queue disabled; POST /api/export will return 503")
	}

	// Start the scheduler for periodic exports
	exportScheduler := scheduler.NewExportSyncScheduler(db, exporter, cfg)
	if err := exportScheduler.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start export scheduler: %v", err)
	}

	// Build router configuration with all dependencies
	routerCfg := http_controllers.RouterConfig{
		Database:    db,
		AppConfig:   cfg,
		RunStore:    db,
		ShelfLister: bookstackClient,
		TaskClient:  taskClient,
		Scheduler:   exportScheduler,
		Version:     version,
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		exportScheduler.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
