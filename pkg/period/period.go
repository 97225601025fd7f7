// Package period turns a requested month into the time window used to pick
// attachments, and parses the timestamps the API returns.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/sevexport/pkg/errors"
)

// Month is a calendar month of a year.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth validates year and month.
func NewMonth(year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, errors.NewConfigError("month", fmt.Sprintf("month %d is not between 1 and 12", month), nil)
	}
	if year < 1970 || year > 9999 {
		return Month{}, errors.NewConfigError("month", fmt.Sprintf("year %d is out of range", year), nil)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

var monthPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?P<year>\d{4})-(?P<month>\d{1,2})$`),
	regexp.MustCompile(`^(?P<month>\d{1,2})[/.](?P<year>\d{4})$`),
}

// ParseMonth accepts "2024-03", "03/2024", "3/2024" and "03.2024".
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	for _, re := range monthPatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[re.SubexpIndex("year")])
		month, _ := strconv.Atoi(m[re.SubexpIndex("month")])
		return NewMonth(year, month)
	}
	return Month{}, errors.NewConfigError("month", fmt.Sprintf("cannot parse month %q, expected YYYY-MM or MM/YYYY", s), nil)
}

// PreviousMonth returns the calendar month before the one containing now,
// evaluated in Central European time.
func PreviousMonth(now time.Time) Month {
	local := now.In(CentralEuropeanZone(now))
	first := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	return Month{Year: prev.Year(), Month: prev.Month()}
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Window returns the month's range. The offset is taken at 00:00 UTC on the
// first of the month and applied to both ends.
func (m Month) Window() Window {
	probe := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	zone := CentralEuropeanZone(probe)
	start := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, zone)
	return Window{
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// Window is a time range. End is included unless ExclusiveEnd is set.
type Window struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	ExclusiveEnd bool      `json:"exclusive_end,omitempty"`
}

// Contains reports whether t lies inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	if w.ExclusiveEnd {
		return t.Before(w.End)
	}
	return !t.After(w.End)
}

// String renders the window for logs.
func (w Window) String() string {
	closing := "]"
	if w.ExclusiveEnd {
		closing = ")"
	}
	return fmt.Sprintf("[%s, %s%s", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), closing)
}
