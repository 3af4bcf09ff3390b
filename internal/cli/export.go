package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/cbrosius/hass-bookstack-exporter/internal/bookstack"
	"github.com/cbrosius/hass-bookstack-exporter/internal/config"
	"github.com/cbrosius/hass-bookstack-exporter/internal/database"
	"github.com/cbrosius/hass-bookstack-exporter/internal/entities"
	"github.com/cbrosius/hass-bookstack-exporter/internal/export"
	"github.com/cbrosius/hass-bookstack-exporter/internal/homeassistant"
)

// ExportCommand runs a one-shot export from Home Assistant to BookStack.
type ExportCommand struct {
	AreaFilter string
	NoHistory  bool
	Timeout    time.Duration
	Verbose    bool
}

// NewExportCommand creates a new ExportCommand
func NewExportCommand() *ExportCommand {
	return &ExportCommand{}
}

// ParseFlags parses command line flags
func (cmd *ExportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)

	fs.StringVar(&cmd.AreaFilter, "area-filter", "", "Only export areas whose name contains this string (case-insensitive)")
	fs.BoolVar(&cmd.NoHistory, "no-history", false, "Do not record the run in the local run history database")
	fs.DurationVar(&cmd.Timeout, "timeout", 10*time.Minute, "Overall export deadline")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print every warning produced during the export")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s export [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Export Home Assistant areas, devices and entities to BookStack.\n\n")
		fmt.Fprintf(os.Stderr, "This command:\n")
		fmt.Fprintf(os.Stderr, "  1. Reads areas, devices and entity states over the Home Assistant WebSocket API\n")
		fmt.Fprintf(os.Stderr, "  2. Groups areas into floor chapters (Ground Floor, First Floor, ...)\n")
		fmt.Fprintf(os.Stderr, "  3. Writes one markdown page per area into the configured shelf and book\n\n")
		fmt.Fprintf(os.Stderr, "Connection settings come from the environment (BOOKSTACK_*, HASS_*).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s export\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s export -area-filter kitchen\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s export -no-history -verbose\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes the export command
func (cmd *ExportCommand) Run() error {
	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	bookstackClient := bookstack.NewClient(bookstack.Config{
		BaseURL:             cfg.BookStack.BaseURL,
		TokenID:             cfg.BookStack.TokenID,
		TokenSecret:         cfg.BookStack.TokenSecret,
		Timeout:             time.Duration(cfg.BookStack.TimeoutSeconds) * time.Second,
		MinRequestInterval:  cfg.BookStack.MinRequestInterval,
		NestedChapterCreate: cfg.BookStack.NestedChapterCreate,
	})
	registry := homeassistant.NewClient(cfg.HomeAssistant.BaseURL, cfg.HomeAssistant.Token)
	exporter := export.NewExporter(bookstackClient, registry, cfg.BookStack.ShelfName)

	runID := uuid.NewString()

	var db *database.Database
	if !cmd.NoHistory {
		var err error
		db, err = database.NewDatabase(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open run history database: %w", err)
		}
		defer db.Close()

		if _, err := db.CreateExportRun(runID, entities.RunTriggerCLI, cmd.AreaFilter); err != nil {
			return fmt.Errorf("failed to record export run: %w", err)
		}
		if err := db.MarkRunRunning(runID); err != nil {
			return fmt.Errorf("failed to update export run: %w", err)
		}
	}

	fmt.Printf("Exporting to %s (shelf %q)\n", cfg.BookStack.BaseURL, cfg.BookStack.ShelfName)
	if cmd.AreaFilter != "" {
		fmt.Printf("Area filter: %q\n", cmd.AreaFilter)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	result, err := exporter.Run(ctx, export.Options{
		RunID:      runID,
		AreaFilter: cmd.AreaFilter,
	})
	if err != nil {
		if db != nil {
			if storeErr := db.FailExportRun(runID, err); storeErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not record run failure: %v\n", storeErr)
			}
		}
		return fmt.Errorf("export failed: %w", err)
	}

	if db != nil {
		if err := db.CompleteExportRun(runID, result); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not record run result: %v\n", err)
		}
	}

	fmt.Printf("\nExport complete (run %s)\n", result.RunID)
	fmt.Printf("  Areas:    %d processed, %d failed\n", result.AreasProcessed, result.AreasFailed)
	fmt.Printf("  Chapters: %d\n", result.ChaptersProcessed)
	fmt.Printf("  Pages:    %d\n", result.PagesWritten)
	fmt.Printf("  Duration: %v\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))

	if len(result.Warnings) > 0 {
		fmt.Printf("  Warnings: %d\n", len(result.Warnings))
		if cmd.Verbose {
			for _, w := range result.Warnings {
				fmt.Printf("    - %s\n", w)
			}
		} else {
			fmt.Println("  (run with -verbose to list warnings)")
		}
	}

	return nil
}
