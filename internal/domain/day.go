package domain

import "time"

// Dates ("café days") are represented as midnight UTC of the calendar date as observed
// in the café time zone. This keeps them comparable and safe to store in DATE columns.

// DayOf returns the café day containing t.
func DayOf(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC)
}

// NextMidnight returns the instant the café day after t begins.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day()+1, 0, 0, 0, 0, loc)
}

// AddDays shifts a café day by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// FormatDay renders a café day as YYYY-MM-DD.
func FormatDay(day time.Time) string {
	return day.UTC().Format("2006-01-02")
}
