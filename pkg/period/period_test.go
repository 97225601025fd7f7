package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/sevexport/pkg/errors"
)

func TestCentralEuropeanOffset(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Duration
	}{
		{"winter", time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC), time.Hour},
		{"summer", time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), 2 * time.Hour},
		{"just before spring switch", time.Date(2024, time.March, 31, 0, 59, 59, 0, time.UTC), time.Hour},
		{"spring switch", time.Date(2024, time.March, 31, 1, 0, 0, 0, time.UTC), 2 * time.Hour},
		{"just before autumn switch", time.Date(2024, time.October, 27, 0, 59, 59, 0, time.UTC), 2 * time.Hour},
		{"autumn switch", time.Date(2024, time.October, 27, 1, 0, 0, 0, time.UTC), time.Hour},
		{"march first", time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC), time.Hour},
		{"april first", time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC), 2 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CentralEuropeanOffset(tt.at))
		})
	}
}

func TestOffsetMatchesEuropeBerlin(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	for year := 2015; year <= 2030; year++ {
		for month := time.January; month <= time.December; month++ {
			probe := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
			_, offset := probe.In(berlin).Zone()
			assert.Equal(t, time.Duration(offset)*time.Second, CentralEuropeanOffset(probe), probe)
		}
	}
}

func TestMonthWindow(t *testing.T) {
	for year := 2019; year <= 2025; year++ {
		for month := 1; month <= 12; month++ {
			m, err := NewMonth(year, month)
			require.NoError(t, err)
			w := m.Window()
			assert.True(t, w.End.Equal(w.Start.AddDate(0, 1, 0)))
			assert.Equal(t, 1, w.Start.Day())
			assert.Equal(t, 0, w.Start.Hour())
		}
	}

	winter, _ := NewMonth(2024, 1)
	_, offset := winter.Window().Start.Zone()
	assert.Equal(t, 3600, offset)
	assert.True(t, winter.Window().Start.Equal(time.Date(2023, time.December, 31, 23, 0, 0, 0, time.UTC)))

	summer, _ := NewMonth(2024, 7)
	_, offset = summer.Window().Start.Zone()
	assert.Equal(t, 7200, offset)
	assert.True(t, summer.Window().Start.Equal(time.Date(2024, time.June, 30, 22, 0, 0, 0, time.UTC)))
}

func TestWindowContains(t *testing.T) {
	m, _ := NewMonth(2024, 5)
	w := m.Window()

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End), "upper bound is inclusive by default")
	assert.False(t, w.Contains(w.Start.Add(-time.Second)))
	assert.False(t, w.Contains(w.End.Add(time.Second)))

	w.ExclusiveEnd = true
	assert.False(t, w.Contains(w.End))
	assert.True(t, w.Contains(w.End.Add(-time.Nanosecond)))
	assert.Contains(t, w.String(), ")")
}

func TestParseMonth(t *testing.T) {
	for _, in := range []string{"2024-03", "03/2024", "3/2024", "03.2024", " 2024-3 "} {
		m, err := ParseMonth(in)
		require.NoError(t, err, in)
		assert.Equal(t, Month{Year: 2024, Month: time.March}, m, in)
	}

	for _, in := range []string{"", "2024", "13/2024", "2024-00", "march 2024", "1/24"} {
		_, err := ParseMonth(in)
		assert.True(t, errors.IsConfigError(err), in)
	}
}

func TestNewMonthValidates(t *testing.T) {
	_, err := NewMonth(2024, 0)
	assert.True(t, errors.IsConfigError(err))
	_, err = NewMonth(1900, 5)
	assert.True(t, errors.IsConfigError(err))

	m, err := NewMonth(2024, 12)
	require.NoError(t, err)
	assert.Equal(t, "2024-12", m.String())
}

func TestPreviousMonth(t *testing.T) {
	assert.Equal(t, Month{Year: 2023, Month: time.December},
		PreviousMonth(time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)))
	// 23:30 UTC on Jan 31 is already February in Berlin.
	assert.Equal(t, Month{Year: 2024, Month: time.January},
		PreviousMonth(time.Date(2024, time.January, 31, 23, 30, 0, 0, time.UTC)))
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2024-05-14T00:00:00+02:00")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2024, time.May, 13, 22, 0, 0, 0, time.UTC)))

	ts, err = ParseTimestamp("2024-01-14")
	require.NoError(t, err)
	_, offset := ts.Zone()
	assert.Equal(t, 3600, offset)
	assert.Equal(t, 14, ts.Day())

	ts, err = ParseTimestamp("2024-07-01 08:15:00")
	require.NoError(t, err)
	_, offset = ts.Zone()
	assert.Equal(t, 7200, offset)
	assert.Equal(t, 8, ts.Hour())

	_, err = ParseTimestamp("yesterday")
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)

	_, err = ParseTimestamp("  ")
	assert.ErrorAs(t, err, &parseErr)
}

func TestDateOnlyOnFirstIsInsideWindow(t *testing.T) {
	m, _ := NewMonth(2024, 4)
	ts, err := ParseTimestamp("2024-04-01")
	require.NoError(t, err)
	assert.True(t, m.Window().Contains(ts))

	ts, err = ParseTimestamp("2024-03-31")
	require.NoError(t, err)
	assert.False(t, m.Window().Contains(ts))
}
