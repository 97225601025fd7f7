package period

import "time"

const (
	cetOffset  = 1 * time.Hour
	cestOffset = 2 * time.Hour
)

// CentralEuropeanOffset returns the UTC offset of Central European civil time
// at instant t: +02:00 from the last Sunday of March 01:00 UTC until the
// last Sunday of October 01:00 UTC, +01:00 otherwise.
func CentralEuropeanOffset(t time.Time) time.Duration {
	t = t.UTC()
	start := lastSunday(t.Year(), time.March)
	end := lastSunday(t.Year(), time.October)
	if !t.Before(start) && t.Before(end) {
		return cestOffset
	}
	return cetOffset
}

// CentralEuropeanZone returns a fixed zone carrying the offset valid at t.
func CentralEuropeanZone(t time.Time) *time.Location {
	offset := CentralEuropeanOffset(t)
	name := "CET"
	if offset == cestOffset {
		name = "CEST"
	}
	return time.FixedZone(name, int(offset.Seconds()))
}

// lastSunday returns 01:00 UTC on the last Sunday of month.
func lastSunday(year int, month time.Month) time.Time {
	last := time.Date(year, month+1, 0, 1, 0, 0, 0, time.UTC)
	return last.AddDate(0, 0, -int(last.Weekday()))
}
