// Package format renders registry values for display.
package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// UnknownSize is shown for a missing or zero byte count.
const UnknownSize = "Unknown size"

// UnknownDate is shown for a tag without a creation timestamp.
const UnknownDate = "Unknown date"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// Bytes formats a byte count in binary units with two decimals, stopping at TB.
func Bytes(size *int64) string {
	if size == nil || *size <= 0 {
		return UnknownSize
	}

	value := float64(*size)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", value, sizeUnits[unit])
}

// TagDescription combines the relative and absolute creation time with the formatted size,
// e.g. "3 days ago (2026-10-14 10:00) · 1.50 KB".
func TagDescription(created *time.Time, size *int64, now time.Time) string {
	when := UnknownDate
	if created != nil {
		when = fmt.Sprintf("%s (%s)",
			humanize.RelTime(*created, now, "ago", "from now"),
			created.UTC().Format("2006-01-02 15:04"),
		)
	}
	return when + " · " + Bytes(size)
}
