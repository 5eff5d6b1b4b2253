package parse

import (
	"regexp"
	"strconv"
	"time"

	"seating-backend/internal/apperr"
)

// DateTimeLayout is the canonical stored form of a reservation date-time.
const DateTimeLayout = "2006-01-02 15:04:05"

// DateLayout is the form accepted for whole-day queries.
const DateLayout = "2006-01-02"

var (
	dateTimeRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})[T ](\d{2}):(\d{2}):(\d{2})$`)
	dateRe     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// ParseDateTime validates raw as a bookable date-time and returns it as a UTC
// wall-clock time. Either 'T' or a space may separate date and time. Minutes
// are restricted to quarter hours and seconds to zero; the date must exist in
// the calendar.
func ParseDateTime(field, raw string) (time.Time, error) {
	m := dateTimeRe.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, apperr.Field(apperr.ErrInvalidDateTime, field,
			"%q does not match YYYY-MM-DD HH:MM:SS", raw)
	}
	year, month, day := atoi(m[1]), atoi(m[2]), atoi(m[3])
	hour, minute, second := atoi(m[4]), atoi(m[5]), atoi(m[6])

	if month < 1 || month > 12 {
		return time.Time{}, apperr.Field(apperr.ErrInvalidDateTime, field, "month %d out of range", month)
	}
	if hour > 23 {
		return time.Time{}, apperr.Field(apperr.ErrInvalidDateTime, field, "hour %d out of range", hour)
	}
	switch minute {
	case 0, 15, 30, 45:
	default:
		return time.Time{}, apperr.Field(apperr.ErrInvalidDateTime, field,
			"minute %d must be one of 0, 15, 30, 45", minute)
	}
	if second != 0 {
		return time.Time{}, apperr.Field(apperr.ErrInvalidDateTime, field, "second must be 0, got %d", second)
	}
	if !validDate(year, month, day) {
		return time.Time{}, apperr.Field(apperr.ErrInvalidDateTime, field,
			"%04d-%02d-%02d is not a calendar date", year, month, day)
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), nil
}

// ParseDate validates raw as YYYY-MM-DD and returns midnight UTC of that day.
func ParseDate(field, raw string) (time.Time, error) {
	m := dateRe.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, apperr.Field(apperr.ErrInvalidDateTime, field, "%q does not match YYYY-MM-DD", raw)
	}
	year, month, day := atoi(m[1]), atoi(m[2]), atoi(m[3])
	if month < 1 || month > 12 || !validDate(year, month, day) {
		return time.Time{}, apperr.Field(apperr.ErrInvalidDateTime, field, "%q is not a calendar date", raw)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// FormatDateTime renders t in the canonical stored form.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}

// validDate relies on time.Date normalising out-of-range days into the next
// month: a real date survives the round trip unchanged.
func validDate(year, month, day int) bool {
	if day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
