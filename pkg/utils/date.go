package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout of date_publish in the persisted table.
const DateLayout = "2006-01-02 15:04:05"

// SentinelDate stands in for a missing or unparsable publish date.
var SentinelDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

var fallbackLayouts = []string{
	DateLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses value in the table layout, accepting the RFC3339 forms crawlers emit.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format %q", value)
}

// FormatDate renders t in the table layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
