package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakazet/basecamp-kita-api/internal/models"
)

func event(id string, start time.Time, duration time.Duration, color models.EventColor) models.CalendarEvent {
	return models.CalendarEvent{
		ID:        id,
		Title:     id,
		StartTime: start,
		EndTime:   start.Add(duration),
		Color:     color,
	}
}

func TestWeekGridGeometry(t *testing.T) {
	ref := time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC) // a Wednesday
	events := []models.CalendarEvent{
		event("ranked", time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC), 90*time.Minute, models.ColorBlue),
		event("checkin", time.Date(2026, 6, 3, 12, 0, 0, 0, time.UTC), 5*time.Minute, models.ColorRed),
	}

	grid := BuildWeekGrid(events, ref, ref, time.Sunday)

	assert.Equal(t, time.Sunday, grid.Start.Weekday())
	assert.Equal(t, 24, grid.Hours)

	wednesday := grid.Days[3]
	require.Len(t, wednesday.Blocks, 2)

	ranked := wednesday.Blocks[0]
	assert.Equal(t, "ranked", ranked.EventID)
	assert.Equal(t, 540, ranked.TopOffset, "09:00 is 540 minutes past midnight")
	assert.Equal(t, 90, ranked.Height)

	checkin := wednesday.Blocks[1]
	assert.Equal(t, 20, checkin.Height, "short events are floored at the minimum height")
}

func TestWeekGridBucketsByStartDate(t *testing.T) {
	ref := time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)
	// Starts Saturday 23:30 and crosses midnight; it must land only in
	// Saturday's column.
	late := event("late", time.Date(2026, 6, 6, 23, 30, 0, 0, time.UTC), 2*time.Hour, models.ColorPurple)

	grid := BuildWeekGrid([]models.CalendarEvent{late}, ref, ref, time.Sunday)

	require.Len(t, grid.Days[6].Blocks, 1)
	for i := 0; i < 6; i++ {
		assert.Empty(t, grid.Days[i].Blocks)
	}
	assert.Equal(t, 120, grid.Days[6].Blocks[0].Height)
}

func TestWeekGridRespectsConfiguredWeekStart(t *testing.T) {
	ref := time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)

	grid := BuildWeekGrid(nil, ref, ref, time.Monday)

	assert.Equal(t, time.Monday, grid.Start.Weekday())
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), grid.Start)
}

func TestDayGridFiltersOtherDays(t *testing.T) {
	ref := time.Date(2026, 6, 3, 15, 0, 0, 0, time.UTC)
	events := []models.CalendarEvent{
		event("today", time.Date(2026, 6, 3, 20, 0, 0, 0, time.UTC), time.Hour, models.ColorGreen),
		event("tomorrow", time.Date(2026, 6, 4, 20, 0, 0, 0, time.UTC), time.Hour, models.ColorGreen),
	}

	column := BuildDayGrid(events, ref, ref)

	require.Len(t, column.Blocks, 1)
	assert.Equal(t, "today", column.Blocks[0].EventID)
	assert.True(t, column.IsToday)
}

func TestMonthGridCoversMonthExactlyOnce(t *testing.T) {
	for month := time.January; month <= time.December; month++ {
		ref := time.Date(2026, month, 15, 0, 0, 0, 0, time.UTC)
		grid := BuildMonthGrid(nil, ref, ref, time.Sunday, 3)

		seen := map[int]int{}
		for _, week := range grid.Weeks {
			for _, cell := range week {
				if cell.InMonth {
					seen[cell.Day]++
				}
			}
		}

		daysInMonth := time.Date(2026, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
		assert.Len(t, seen, daysInMonth, "%s", month)
		for day, count := range seen {
			assert.Equal(t, 1, count, "%s day %d", month, day)
		}

		// The first cell of every week row sits on the configured week start.
		for _, week := range grid.Weeks {
			assert.Equal(t, time.Sunday, week[0].Date.Weekday())
		}
	}
}

func TestMonthGridMarksTodayHolidayAndDots(t *testing.T) {
	ref := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	events := []models.CalendarEvent{
		event("first", time.Date(2026, 8, 10, 19, 0, 0, 0, time.UTC), time.Hour, models.ColorTeal),
		event("second", time.Date(2026, 8, 10, 21, 0, 0, 0, time.UTC), time.Hour, models.ColorRed),
	}

	grid := BuildMonthGrid(events, ref, now, time.Sunday, 3)

	var today, independence, tenth *DayCell
	for w := range grid.Weeks {
		for i := range grid.Weeks[w] {
			cell := &grid.Weeks[w][i]
			if !cell.InMonth {
				continue
			}
			switch cell.Day {
			case 20:
				today = cell
			case 17:
				independence = cell
			case 10:
				tenth = cell
			}
		}
	}

	require.NotNil(t, today)
	assert.True(t, today.IsToday)

	require.NotNil(t, independence)
	assert.True(t, independence.IsHoliday, "August 17 is Independence Day")
	assert.NotEmpty(t, independence.HolidayName)

	require.NotNil(t, tenth)
	assert.True(t, tenth.HasEvent)
	assert.Equal(t, models.ColorTeal, tenth.DotColor, "dot takes the first event's color")
}

func TestMonthPreviewIsBoundedAndSorted(t *testing.T) {
	ref := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	events := []models.CalendarEvent{
		event("d", time.Date(2026, 6, 20, 10, 0, 0, 0, time.UTC), time.Hour, models.ColorGray),
		event("a", time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC), time.Hour, models.ColorGray),
		event("c", time.Date(2026, 6, 12, 10, 0, 0, 0, time.UTC), time.Hour, models.ColorGray),
		event("b", time.Date(2026, 6, 5, 10, 0, 0, 0, time.UTC), time.Hour, models.ColorGray),
		event("other-month", time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC), time.Hour, models.ColorGray),
	}

	grid := BuildMonthGrid(events, ref, ref, time.Sunday, 3)

	require.Len(t, grid.Preview, 3)
	assert.Equal(t, "a", grid.Preview[0].EventID)
	assert.Equal(t, "b", grid.Preview[1].EventID)
	assert.Equal(t, "c", grid.Preview[2].EventID)
}

func TestYearGridHasTwelveMonths(t *testing.T) {
	ref := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	grid := BuildYearGrid(nil, ref, ref, time.Sunday, 3)

	assert.Equal(t, 2026, grid.Year)
	for i, month := range grid.Months {
		assert.Equal(t, time.Month(i+1), month.Month)
		assert.NotEmpty(t, month.Weeks)
	}
}

func TestStartOfWeekWrapsBackwards(t *testing.T) {
	// Sunday ref with Monday week start must step back six days, not one.
	sunday := time.Date(2026, 6, 7, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday, time.Monday))
	assert.Equal(t, time.Date(2026, 6, 7, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday, time.Sunday))
}

func TestHolidayTable(t *testing.T) {
	holidays := Holidays(2026)
	require.NotEmpty(t, holidays)

	byDate := map[string]string{}
	for _, h := range holidays {
		byDate[h.Date.Format("2006-01-02")] = h.Name
	}
	assert.Contains(t, byDate, "2026-08-17")
	assert.Contains(t, byDate, "2026-01-01")

	assert.Empty(t, Holidays(1999), "years without a table yield nothing")
}
