package appointment

import (
	"strings"
	"time"
)

// naive layouts carry no offset and are read in the clinic's zone
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseConfirmTime reads an ISO-8601 timestamp. Values with a zone or "Z"
// keep it; naive values are taken as wall-clock time in loc. The result is
// UTC, truncated to the second.
func ParseConfirmTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fieldError("confirmed_datetime", "required")
	}
	if loc == nil {
		loc = time.UTC
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC().Truncate(time.Second), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, fieldError("confirmed_datetime", "must be an ISO-8601 timestamp, e.g. 2025-08-02T09:30:00")
}
