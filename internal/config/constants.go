package config

// Default paths and fixed domain values.
const (
	// DefaultDatabasePath is the default path for the export-run history database
	DefaultDatabasePath = "./bookstack-exporter.db"

	// DefaultShelfName is the BookStack shelf all exported books are placed on
	// unless the operator configures another one.
	DefaultShelfName = "Home Assistant Documentation"

	// AreasBookName is the fixed book that holds one chapter per floor.
	AreasBookName = "Areas"

	// AreasBookDescription describes the Areas book on creation.
	AreasBookDescription = "Home Assistant device and entity documentation organized by physical areas"

	// DefaultShelfDescription describes a shelf this exporter creates itself.
	DefaultShelfDescription = "Exported documentation of Home Assistant devices and entities"
)

// BookStack request pacing and timeout bounds. The timeout window matches
// what the configuration surface accepts (seconds).
const (
	DefaultTimeoutSeconds = 30
	MinTimeoutSeconds     = 5
	MaxTimeoutSeconds     = 300

	// DefaultMinRequestIntervalMs is the minimum spacing between outbound
	// BookStack calls, so the exporter never self-inflicts a 429.
	DefaultMinRequestIntervalMs = 500
)
