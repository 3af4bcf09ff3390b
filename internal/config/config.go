package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		BookStack
		HomeAssistant
		ExportSync
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	BookStack struct {
		BaseURL            string
		TokenID            string
		TokenSecret        string
		ShelfName          string
		TimeoutSeconds     int
		MinRequestInterval time.Duration
		// NestedChapterCreate selects POST /api/books/{id}/chapters instead of
		// POST /api/chapters with book_id in the body. Older BookStack
		// releases only accept the nested form.
		NestedChapterCreate bool
	}
	HomeAssistant struct {
		BaseURL string
		Token   string
	}
	ExportSync struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8189)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	v.SetDefault("bookstack_base_url", "")
	v.SetDefault("bookstack_token_id", "")
	v.SetDefault("bookstack_token_secret", "")
	v.SetDefault("bookstack_shelf_name", DefaultShelfName)
	v.SetDefault("bookstack_timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("bookstack_min_request_interval_ms", DefaultMinRequestIntervalMs)
	v.SetDefault("bookstack_nested_chapter_create", false)

	v.SetDefault("hass_base_url", "")
	v.SetDefault("hass_token", "")

	v.SetDefault("export_sync_enabled", false)
	v.SetDefault("export_sync_schedule", "0 3 * * *") // Daily at 03:00

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		BookStack: BookStack{
			BaseURL:             v.GetString("BOOKSTACK_BASE_URL"),
			TokenID:             v.GetString("BOOKSTACK_TOKEN_ID"),
			TokenSecret:         v.GetString("BOOKSTACK_TOKEN_SECRET"),
			ShelfName:           v.GetString("BOOKSTACK_SHELF_NAME"),
			TimeoutSeconds:      v.GetInt("BOOKSTACK_TIMEOUT_SECONDS"),
			MinRequestInterval:  time.Duration(v.GetInt("BOOKSTACK_MIN_REQUEST_INTERVAL_MS")) * time.Millisecond,
			NestedChapterCreate: v.GetBool("BOOKSTACK_NESTED_CHAPTER_CREATE"),
		},
		HomeAssistant: HomeAssistant{
			BaseURL: v.GetString("HASS_BASE_URL"),
			Token:   v.GetString("HASS_TOKEN"),
		},
		ExportSync: ExportSync{
			Enabled:  v.GetBool("EXPORT_SYNC_ENABLED"),
			Schedule: v.GetString("EXPORT_SYNC_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
	}
}

// ValidateTimeoutSeconds checks a BookStack request timeout against the
// accepted window. Used both at startup and by the connection-test surface.
func ValidateTimeoutSeconds(seconds int) error {
	if seconds < MinTimeoutSeconds || seconds > MaxTimeoutSeconds {
		return fmt.Errorf("timeout must be between %d and %d seconds, got %d",
			MinTimeoutSeconds, MaxTimeoutSeconds, seconds)
	}
	return nil
}

// Validate checks the parts of the configuration the export pipeline cannot
// run without.
func (c *Config) Validate() error {
	if c.BookStack.BaseURL == "" {
		return fmt.Errorf("BOOKSTACK_BASE_URL is not set")
	}
	if c.BookStack.TokenID == "" || c.BookStack.TokenSecret == "" {
		return fmt.Errorf("BOOKSTACK_TOKEN_ID and BOOKSTACK_TOKEN_SECRET must be set")
	}
	if err := ValidateTimeoutSeconds(c.BookStack.TimeoutSeconds); err != nil {
		return err
	}
	if c.HomeAssistant.BaseURL == "" {
		return fmt.Errorf("HASS_BASE_URL is not set")
	}
	if c.HomeAssistant.Token == "" {
		return fmt.Errorf("HASS_TOKEN is not set")
	}
	return nil
}
