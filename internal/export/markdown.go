package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/cbrosius/hass-bookstack-exporter/internal/homeassistant"
)

// AreaSnapshot bundles one area with the devices and entities resolved for
// it during a single export run.
type AreaSnapshot struct {
	Area     homeassistant.Area
	Devices  []homeassistant.Device
	Entities []homeassistant.EntityState
}

// GeneratePageContent renders the markdown body for an area page: heading,
// statistics, a devices table, an entities table, and a generation
// timestamp. Every write replaces the prior body entirely.
func GeneratePageContent(snap AreaSnapshot, now time.Time) string {
	var b strings.Builder

	areaName := snap.Area.Name

	fmt.Fprintf(&b, "# %s - Home Assistant Area Overview\n\n", areaName)
	b.WriteString("## Overview\n")
	fmt.Fprintf(&b, "This page documents the Home Assistant devices and entities located in the **%s** area.\n\n", areaName)

	b.WriteString("## Statistics\n")
	fmt.Fprintf(&b, "- **Devices**: %d\n", len(snap.Devices))
	fmt.Fprintf(&b, "- **Entities**: %d\n\n", len(snap.Entities))

	b.WriteString("## Devices\n\n")
	b.WriteString("| Device | Manufacturer | Model | Status |\n")
	b.WriteString("|--------|-------------|-------|--------|\n")
	for _, device := range snap.Devices {
		fmt.Fprintf(&b, "| %s | %s | %s | Active |\n",
			orUnknown(device.DisplayName()),
			orUnknown(device.Manufacturer),
			orUnknown(device.Model))
	}

	b.WriteString("\n## Entities\n\n")
	b.WriteString("| Entity ID | Friendly Name | Device Class | Unit |\n")
	b.WriteString("|-----------|--------------|--------------|------|\n")
	for _, entity := range snap.Entities {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			entity.EntityID,
			entity.FriendlyName(),
			orDash(entity.Attributes.DeviceClass),
			orDash(entity.Attributes.UnitOfMeasurement))
	}

	b.WriteString("\n## Last Updated\n")
	fmt.Fprintf(&b, "Generated on: %s\n\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString("---\n")
	b.WriteString("*This documentation is automatically generated by the Home Assistant BookStack exporter*\n")

	return b.String()
}

// PageTitle returns the BookStack page title used for an area.
func PageTitle(areaName string) string {
	return areaName + " Overview"
}

// ChapterDescription synthesizes the description for a floor chapter from
// the counts of the bucket's first area. The description deliberately
// samples a single area rather than aggregating the bucket, so re-exports
// against existing wikis stay stable; see DESIGN.md before changing it.
func ChapterDescription(bucketName string, first AreaSnapshot) string {
	return fmt.Sprintf("Documentation for %s area (%d devices, %d entities)",
		bucketName, len(first.Devices), len(first.Entities))
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
