package dashboard

import (
	"strings"
	"time"
)

// inputLayouts are tried after RFC 3339, in the controller's location.
var inputLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// parseBound reads a window bound typed by the user.
func parseBound(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, true
	}
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
