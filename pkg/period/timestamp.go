package period

import (
	"strings"
	"time"

	"github.com/agentstation/sevexport/pkg/errors"
)

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05-07:00",
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a date or timestamp as returned by the API.
// Values without an offset are read as Central European civil time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.NewParseError("date", "", "empty timestamp", nil)
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	for _, layout := range localLayouts {
		wall, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		// Local wall time is at least one hour ahead of UTC.
		zone := CentralEuropeanZone(wall.Add(-cetOffset))
		return time.Date(wall.Year(), wall.Month(), wall.Day(),
			wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), zone), nil
	}

	return time.Time{}, errors.NewParseError("date", "", "unrecognized timestamp "+s, nil)
}
