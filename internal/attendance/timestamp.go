package attendance

import (
	"strings"
	"time"

	"smartattendance/internal/apperr"
)

// naive ISO-8601 forms are read as UTC
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ResolveTimestamp parses an ISO-8601 instant supplied by a client. An empty
// string falls back to now in UTC. Offsets are honoured and converted to UTC.
func ResolveTimestamp(raw string, now func() time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation("Invalid timestamp format")
}
