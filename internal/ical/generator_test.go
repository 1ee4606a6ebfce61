package ical

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/birthday-tracker/internal/config"
	"github.com/tartampluch/birthday-tracker/internal/engine"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func testGenerator(now time.Time) *Generator {
	summary := func(name string, age int, ageKnown bool) string {
		if ageKnown {
			return fmt.Sprintf("%s's Birthday (%s)", name, engine.Ordinal(age))
		}
		return fmt.Sprintf("%s's Birthday", name)
	}
	return NewGenerator(fixedClock{now: now}, summary, nil)
}

func TestGenerateThreeYears(t *testing.T) {
	// Reference "now": June 15th, 2025
	gen := testGenerator(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))

	records := []engine.Record{
		{ID: "a1b2c3d4", Name: "Alice", Year: 1990, Month: 6, Day: 15},
	}
	data, err := gen.Generate(records, []int{7, 1, 0})
	require.NoError(t, err)
	ics := string(data)

	// One event per year: previous, current, next.
	assert.Equal(t, 3, strings.Count(ics, "BEGIN:VEVENT"))
	for _, year := range []int{2024, 2025, 2026} {
		assert.Contains(t, ics, fmt.Sprintf("UID:a1b2c3d4-%d@%s", year, config.ICalDomain))
	}
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20250615")
	assert.Contains(t, ics, "Alice's Birthday (35th)")
	assert.Contains(t, ics, "Alice's Birthday (36th)")
}

func TestGenerateSkipsYearsBeforeBirth(t *testing.T) {
	gen := testGenerator(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))

	records := []engine.Record{
		{ID: "newborn1", Name: "Junior", Year: 2025, Month: 8, Day: 1},
	}
	data, err := gen.Generate(records, nil)
	require.NoError(t, err)
	ics := string(data)

	assert.Equal(t, 2, strings.Count(ics, "BEGIN:VEVENT"),
		"No event in 2024, the year before the birth")
	assert.NotContains(t, ics, "UID:newborn1-2024@")
}

func TestGenerateYearlessAllThreeYears(t *testing.T) {
	gen := testGenerator(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))

	records := []engine.Record{
		{ID: "noyear01", Name: "Mystery", Month: 3, Day: 10},
	}
	data, err := gen.Generate(records, nil)
	require.NoError(t, err)
	ics := string(data)

	assert.Equal(t, 3, strings.Count(ics, "BEGIN:VEVENT"))
	assert.Contains(t, ics, "Mystery's Birthday")
	assert.NotContains(t, ics, "(")
}

func TestGenerateLeapDay(t *testing.T) {
	gen := testGenerator(time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC))

	records := []engine.Record{
		{ID: "leapling", Name: "Leap", Year: 2000, Month: 2, Day: 29},
	}
	data, err := gen.Generate(records, nil)
	require.NoError(t, err)
	ics := string(data)

	// 2024 is a leap year, 2025 and 2026 are not.
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20240229")
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20250228")
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20260228")
	assert.NotContains(t, ics, "0301", "Feb 29 must not slide into March")
}

func TestGenerateAlarms(t *testing.T) {
	gen := testGenerator(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))

	records := []engine.Record{
		{ID: "a1b2c3d4", Name: "Alice", Month: 6, Day: 20, ReminderDays: []int{7, 0}},
	}
	data, err := gen.Generate(records, []int{1})
	require.NoError(t, err)
	ics := string(data)

	// Two alarms per event, three events; per-record offsets win.
	assert.Equal(t, 6, strings.Count(ics, "BEGIN:VALARM"))
	assert.Contains(t, ics, "TRIGGER:-P7D")
	assert.Contains(t, ics, "TRIGGER:P0D")
	assert.NotContains(t, ics, "TRIGGER:-P1D")
}

func TestGenerateDefaultsApplyToAlarms(t *testing.T) {
	gen := testGenerator(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))

	records := []engine.Record{
		{ID: "a1b2c3d4", Name: "Alice", Month: 6, Day: 20},
	}
	data, err := gen.Generate(records, []int{3})
	require.NoError(t, err)

	assert.Contains(t, string(data), "TRIGGER:-P3D")
}

func TestGenerateNotes(t *testing.T) {
	gen := testGenerator(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))

	records := []engine.Record{
		{ID: "a1b2c3d4", Name: "Alice", Month: 6, Day: 20, Notes: "loves tulips"},
	}
	data, err := gen.Generate(records, nil)
	require.NoError(t, err)

	assert.Contains(t, string(data), "DESCRIPTION:loves tulips")
}

func TestGenerateEmptyStub(t *testing.T) {
	gen := testGenerator(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))

	data, err := gen.Generate(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, config.StubVCalendar, string(data),
		"An empty collection still yields a valid VCALENDAR")
}

func TestGenerateCalendarHeaders(t *testing.T) {
	gen := testGenerator(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))

	records := []engine.Record{{ID: "a1b2c3d4", Name: "Alice", Month: 6, Day: 20}}
	data, err := gen.Generate(records, nil)
	require.NoError(t, err)
	ics := string(data)

	assert.Contains(t, ics, "VERSION:2.0")
	assert.Contains(t, ics, "PRODID:"+config.ICalProdid)
	assert.Contains(t, ics, "X-WR-CALNAME:"+config.ICalCalName)
}
