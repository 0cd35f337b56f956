package calendar

import "time"

// Holiday is one entry of the static per-year holiday table.
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
	Type string    `json:"type"`
}

// Holidays returns the holiday table for a year. The table is static
// (Indonesian public holidays plus major international ones); years
// without a table yield an empty overlay.
func Holidays(year int) []Holiday {
	switch year {
	case 2026:
		return holidays2026
	default:
		return nil
	}
}

func holiday(year int, month time.Month, day int, name string) Holiday {
	return Holiday{
		Date: time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		Name: name,
		Type: "public",
	}
}

var holidays2026 = []Holiday{
	holiday(2026, time.January, 1, "New Year's Day"),
	holiday(2026, time.January, 17, "Isra Mi'raj"),
	holiday(2026, time.February, 17, "Chinese New Year"),
	holiday(2026, time.March, 20, "Eid al-Fitr"),
	holiday(2026, time.March, 22, "Eid al-Fitr Holiday"),
	holiday(2026, time.April, 3, "Good Friday"),
	holiday(2026, time.May, 1, "Labour Day"),
	holiday(2026, time.May, 14, "Ascension Day"),
	holiday(2026, time.May, 27, "Eid al-Adha"),
	holiday(2026, time.June, 1, "Pancasila Day"),
	holiday(2026, time.June, 16, "Islamic New Year"),
	holiday(2026, time.August, 17, "Independence Day"),
	holiday(2026, time.August, 25, "Prophet's Birthday"),
	holiday(2026, time.December, 25, "Christmas Day"),
}

func holidayOn(holidays []Holiday, date time.Time) (Holiday, bool) {
	for _, h := range holidays {
		if SameDay(h.Date, date) {
			return h, true
		}
	}
	return Holiday{}, false
}

func monthHolidays(holidays []Holiday, month time.Month) []Holiday {
	var result []Holiday
	for _, h := range holidays {
		if h.Date.Month() == month {
			result = append(result, h)
		}
	}
	return result
}
