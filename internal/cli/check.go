package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cbrosius/hass-bookstack-exporter/internal/bookstack"
	"github.com/cbrosius/hass-bookstack-exporter/internal/config"
	"github.com/cbrosius/hass-bookstack-exporter/internal/homeassistant"
)

// CheckCommand verifies connectivity to BookStack and Home Assistant.
type CheckCommand struct {
	TimeoutSeconds int
}

// NewCheckCommand creates a new CheckCommand
func NewCheckCommand() *CheckCommand {
	return &CheckCommand{}
}

// ParseFlags parses command line flags
func (cmd *CheckCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)

	fs.IntVar(&cmd.TimeoutSeconds, "timeout", config.DefaultTimeoutSeconds, "Request timeout in seconds")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s check [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Verify that both BookStack and Home Assistant are reachable with the\n")
		fmt.Fprintf(os.Stderr, "configured credentials (BOOKSTACK_*, HASS_* environment variables).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the check command
func (cmd *CheckCommand) Run() error {
	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.ValidateTimeoutSeconds(cmd.TimeoutSeconds); err != nil {
		return err
	}

	timeout := time.Duration(cmd.TimeoutSeconds) * time.Second
	failed := false

	fmt.Printf("BookStack:      %s\n", cfg.BookStack.BaseURL)
	if err := cmd.checkBookStack(cfg, timeout); err != nil {
		failed = true
		fmt.Printf("  FAILED: %v\n", describeBookStackError(err))
	}

	fmt.Printf("Home Assistant: %s\n", cfg.HomeAssistant.BaseURL)
	if err := cmd.checkHomeAssistant(cfg, timeout); err != nil {
		failed = true
		if errors.Is(err, homeassistant.ErrAuthFailed) {
			fmt.Printf("  FAILED: access token was rejected\n")
		} else {
			fmt.Printf("  FAILED: %v\n", err)
		}
	}

	if failed {
		return fmt.Errorf("connection check failed")
	}

	fmt.Println("\nAll connections OK")
	return nil
}

func (cmd *CheckCommand) checkBookStack(cfg *config.Config, timeout time.Duration) error {
	client := bookstack.NewClient(bookstack.Config{
		BaseURL:             cfg.BookStack.BaseURL,
		TokenID:             cfg.BookStack.TokenID,
		TokenSecret:         cfg.BookStack.TokenSecret,
		Timeout:             timeout,
		MinRequestInterval:  cfg.BookStack.MinRequestInterval,
		NestedChapterCreate: cfg.BookStack.NestedChapterCreate,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.TestConnection(ctx); err != nil {
		return err
	}

	shelves, err := client.GetShelves(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  OK (%d shelves visible)\n", len(shelves))
	return nil
}

func (cmd *CheckCommand) checkHomeAssistant(cfg *config.Config, timeout time.Duration) error {
	client := homeassistant.NewClient(cfg.HomeAssistant.BaseURL, cfg.HomeAssistant.Token)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	areas, err := client.ListAreas(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  OK (%d areas registered)\n", len(areas))
	return nil
}

func describeBookStackError(err error) string {
	switch {
	case bookstack.IsAuthError(err):
		return "token was rejected, check BOOKSTACK_TOKEN_ID and BOOKSTACK_TOKEN_SECRET"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	default:
		return err.Error()
	}
}
