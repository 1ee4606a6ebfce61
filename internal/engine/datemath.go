package engine

import (
	"strconv"
	"time"
)

// IsLeapYear reports whether year has a Feb 29.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// ValidMonthDay reports whether (month, day) is a real calendar date in at
// least one year. Feb 29 is valid here; its resolution in non-leap years is
// handled by OccurrenceInYear.
func ValidMonthDay(month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	// Check against a leap year so Feb 29 passes.
	t := time.Date(2000, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return int(t.Month()) == month && t.Day() == day
}

// OccurrenceInYear returns the calendar date of the (month, day) anniversary
// in the given year. A Feb 29 anniversary resolves to Feb 28 in non-leap
// years: the celebration stays in February and no year is ever skipped.
// Note time.Date alone would normalize Feb 29 to Mar 1, which is exactly the
// behavior this function exists to avoid.
func OccurrenceInYear(year, month, day int, loc *time.Location) time.Time {
	if month == int(time.February) && day == 29 && !IsLeapYear(year) {
		day = 28
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}

// NextOccurrence returns the next date on or after today whose month and day
// match the birthday. If today is the birthday, today is the occurrence.
func NextOccurrence(month, day int, today time.Time) time.Time {
	loc := today.Location()
	todayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)

	candidate := OccurrenceInYear(today.Year(), month, day, loc)
	if candidate.Before(todayStart) {
		candidate = OccurrenceInYear(today.Year()+1, month, day, loc)
	}
	return candidate
}

// DaysUntil returns the number of calendar days from today until the next
// occurrence. The result is in [0, 366]; 0 means the birthday is today.
func DaysUntil(month, day int, today time.Time) int {
	occ := NextOccurrence(month, day, today)
	// Diff in UTC at midnight so DST transitions cannot skew the day count.
	a := time.Date(occ.Year(), occ.Month(), occ.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(a.Sub(b) / (24 * time.Hour))
}

// AgeTurning returns the age reached on the next occurrence. The second
// return value is false when the birth year is unknown (zero).
func AgeTurning(year, month, day int, today time.Time) (int, bool) {
	if year == 0 {
		return 0, false
	}
	occ := NextOccurrence(month, day, today)
	return occ.Year() - year, true
}

// Ordinal formats n as an English ordinal: 1st, 2nd, 3rd, 4th, ...
// The 11..13 band of every hundred takes "th" (111th, 112th, 113th).
func Ordinal(n int) string {
	suffix := "th"
	if rem := n % 100; rem < 11 || rem > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
