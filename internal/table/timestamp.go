package table

import (
	"fmt"
	"strings"
	"time"
)

// timestampFormats are the accepted input timestamp layouts, tried in order.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// ParseTimestamp parses a timestamp cell against the accepted layouts.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q does not match any accepted timestamp format", s)
}

// FormatTimestamp renders a timestamp for output tables. RFC3339 keeps
// round-trips lossless and repeated runs byte-identical.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}
