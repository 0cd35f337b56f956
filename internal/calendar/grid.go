// Package calendar projects a flat event list into render-ready grids
// for the day, week, month and year views. Everything here is a pure
// function of its inputs; the reference time is always passed in.
package calendar

import (
	"sort"
	"time"

	"github.com/rakazet/basecamp-kita-api/internal/models"
)

// ViewMode selects a grid projection.
type ViewMode string

const (
	ViewDay   ViewMode = "day"
	ViewWeek  ViewMode = "week"
	ViewMonth ViewMode = "month"
	ViewYear  ViewMode = "year"
)

// ValidViewMode reports whether the mode is one of the four views.
func ValidViewMode(m ViewMode) bool {
	switch m {
	case ViewDay, ViewWeek, ViewMonth, ViewYear:
		return true
	default:
		return false
	}
}

// HoursPerDay is the number of hourly rows in the week and day grids.
const HoursPerDay = 24

// MinBlockHeight keeps very short events visible: a block is never
// rendered shorter than this many minutes.
const MinBlockHeight = 20

// EventBlock is one event positioned inside a day column. TopOffset is
// minutes since midnight of the event's start; Height is the duration
// in minutes, floored at MinBlockHeight.
type EventBlock struct {
	EventID   string            `json:"event_id"`
	Title     string            `json:"title"`
	Color     models.EventColor `json:"color"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	TopOffset int               `json:"top_offset"`
	Height    int               `json:"height"`
	IsAllDay  bool              `json:"is_all_day"`
}

// DayColumn is one vertical day lane of the week grid.
type DayColumn struct {
	Date    time.Time    `json:"date"`
	IsToday bool         `json:"is_today"`
	Blocks  []EventBlock `json:"blocks"`
}

// WeekGrid is the 7-column by 24-row week projection.
type WeekGrid struct {
	Start time.Time    `json:"start"`
	End   time.Time    `json:"end"`
	Hours int          `json:"hours"`
	Days  [7]DayColumn `json:"days"`
}

// BuildWeekGrid buckets events into the 7 day columns of the week
// containing ref. Events land in the column matching their start date;
// there is no cross-midnight splitting.
func BuildWeekGrid(events []models.CalendarEvent, ref, now time.Time, weekStart time.Weekday) WeekGrid {
	start := StartOfWeek(ref, weekStart)
	grid := WeekGrid{
		Start: start,
		End:   start.AddDate(0, 0, 7),
		Hours: HoursPerDay,
	}

	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		grid.Days[i] = DayColumn{
			Date:    day,
			IsToday: SameDay(day, now),
			Blocks:  []EventBlock{},
		}
	}

	for _, event := range events {
		local := event.StartTime.In(ref.Location())
		col := -1
		for i := 0; i < 7; i++ {
			if SameDay(grid.Days[i].Date, local) {
				col = i
				break
			}
		}
		if col < 0 {
			continue
		}
		grid.Days[col].Blocks = append(grid.Days[col].Blocks, newBlock(event, local))
	}

	for i := range grid.Days {
		blocks := grid.Days[i].Blocks
		sort.SliceStable(blocks, func(a, b int) bool {
			return blocks[a].StartTime.Before(blocks[b].StartTime)
		})
	}

	return grid
}

// BuildDayGrid is the single-column variant of the week projection.
func BuildDayGrid(events []models.CalendarEvent, ref, now time.Time) DayColumn {
	day := StartOfDay(ref)
	column := DayColumn{
		Date:    day,
		IsToday: SameDay(day, now),
		Blocks:  []EventBlock{},
	}

	for _, event := range events {
		local := event.StartTime.In(ref.Location())
		if !SameDay(day, local) {
			continue
		}
		column.Blocks = append(column.Blocks, newBlock(event, local))
	}

	sort.SliceStable(column.Blocks, func(a, b int) bool {
		return column.Blocks[a].StartTime.Before(column.Blocks[b].StartTime)
	})

	return column
}

func newBlock(event models.CalendarEvent, local time.Time) EventBlock {
	top := local.Hour()*60 + local.Minute()
	height := int(event.EndTime.Sub(event.StartTime).Minutes())
	if height < MinBlockHeight {
		height = MinBlockHeight
	}
	return EventBlock{
		EventID:   event.ID,
		Title:     event.Title,
		Color:     event.Color,
		StartTime: event.StartTime,
		EndTime:   event.EndTime,
		TopOffset: top,
		Height:    height,
		IsAllDay:  event.IsAllDay,
	}
}

// DayCell is one cell of the month grid. Cells outside the month are
// kept (dimmed leading/trailing days) with InMonth false.
type DayCell struct {
	Date        time.Time         `json:"date"`
	Day         int               `json:"day"`
	InMonth     bool              `json:"in_month"`
	IsToday     bool              `json:"is_today"`
	IsHoliday   bool              `json:"is_holiday"`
	HolidayName string            `json:"holiday_name,omitempty"`
	HasEvent    bool              `json:"has_event"`
	DotColor    models.EventColor `json:"dot_color,omitempty"`
}

// PreviewItem is one entry of a month's bounded event preview.
type PreviewItem struct {
	EventID   string            `json:"event_id"`
	Title     string            `json:"title"`
	Color     models.EventColor `json:"color"`
	StartTime time.Time         `json:"start_time"`
	Day       int               `json:"day"`
}

// MonthGrid is the 7-wide week-row projection of one month, spanning
// from the first shown weekday on or before the 1st to the last shown
// weekday on or after the month's final day.
type MonthGrid struct {
	Year     int           `json:"year"`
	Month    time.Month    `json:"month"`
	Weeks    [][7]DayCell  `json:"weeks"`
	Holidays []Holiday     `json:"holidays"`
	Preview  []PreviewItem `json:"preview"`
}

// BuildMonthGrid projects one month. previewLimit bounds the surfaced
// event preview (first events of the month, ascending by start time).
func BuildMonthGrid(events []models.CalendarEvent, ref, now time.Time, weekStart time.Weekday, previewLimit int) MonthGrid {
	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	monthEnd := monthStart.AddDate(0, 1, -1)
	gridStart := StartOfWeek(monthStart, weekStart)
	gridEnd := StartOfWeek(monthEnd, weekStart).AddDate(0, 0, 7)

	holidays := Holidays(ref.Year())
	grid := MonthGrid{
		Year:     ref.Year(),
		Month:    ref.Month(),
		Holidays: monthHolidays(holidays, ref.Month()),
	}

	for day := gridStart; day.Before(gridEnd); day = day.AddDate(0, 0, 7) {
		var week [7]DayCell
		for i := 0; i < 7; i++ {
			date := day.AddDate(0, 0, i)
			cell := DayCell{
				Date:    date,
				Day:     date.Day(),
				InMonth: date.Month() == ref.Month(),
				IsToday: SameDay(date, now),
			}
			if holiday, ok := holidayOn(holidays, date); ok {
				cell.IsHoliday = true
				cell.HolidayName = holiday.Name
			}
			for _, event := range events {
				if SameDay(event.StartTime.In(ref.Location()), date) {
					cell.HasEvent = true
					cell.DotColor = event.Color
					break
				}
			}
			week[i] = cell
		}
		grid.Weeks = append(grid.Weeks, week)
	}

	grid.Preview = buildPreview(events, ref, previewLimit)
	return grid
}

// YearGrid is twelve month projections.
type YearGrid struct {
	Year   int          `json:"year"`
	Months [12]MonthGrid `json:"months"`
}

// BuildYearGrid projects every month of ref's year.
func BuildYearGrid(events []models.CalendarEvent, ref, now time.Time, weekStart time.Weekday, previewLimit int) YearGrid {
	grid := YearGrid{Year: ref.Year()}
	for m := time.January; m <= time.December; m++ {
		monthRef := time.Date(ref.Year(), m, 1, 0, 0, 0, 0, ref.Location())
		grid.Months[int(m)-1] = BuildMonthGrid(events, monthRef, now, weekStart, previewLimit)
	}
	return grid
}

func buildPreview(events []models.CalendarEvent, ref time.Time, limit int) []PreviewItem {
	if limit <= 0 {
		limit = 3
	}

	var inMonth []models.CalendarEvent
	for _, event := range events {
		local := event.StartTime.In(ref.Location())
		if local.Year() == ref.Year() && local.Month() == ref.Month() {
			inMonth = append(inMonth, event)
		}
	}
	sort.SliceStable(inMonth, func(a, b int) bool {
		return inMonth[a].StartTime.Before(inMonth[b].StartTime)
	})
	if len(inMonth) > limit {
		inMonth = inMonth[:limit]
	}

	preview := make([]PreviewItem, 0, len(inMonth))
	for _, event := range inMonth {
		local := event.StartTime.In(ref.Location())
		preview = append(preview, PreviewItem{
			EventID:   event.ID,
			Title:     event.Title,
			Color:     event.Color,
			StartTime: event.StartTime,
			Day:       local.Day(),
		})
	}
	return preview
}

// StartOfWeek returns midnight of the first shown weekday on or before t.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	day := StartOfDay(t)
	diff := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -diff)
}

// StartOfDay returns midnight of t's date in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two instants share a calendar date.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
