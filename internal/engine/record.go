package engine

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/birthday-tracker/internal/config"
)

// Record is a single tracked birthday.
//
// Month and Day are always set; Year is zero when the birth year is unknown,
// in which case no age can be computed. ReminderDays is the per-record
// reminder offset list (days before the occurrence); when empty, the global
// default applies at scheduling time.
type Record struct {
	ID           string
	Name         string
	Month        int
	Day          int
	Year         int // 0 = unknown
	Notes        string
	ReminderDays []int
}

// YearKnown reports whether the birth year was supplied.
func (r Record) YearKnown() bool {
	return r.Year != 0
}

// DateString renders the stored date form: "YYYY-MM-DD" when the year is
// known, "MM-DD" otherwise. This is the format used in persisted data and
// in outbound reminder events.
func (r Record) DateString() string {
	if r.YearKnown() {
		return fmt.Sprintf("%04d-%02d-%02d", r.Year, r.Month, r.Day)
	}
	return fmt.Sprintf("%02d-%02d", r.Month, r.Day)
}

// EffectiveReminderDays returns the record's own offsets, or the supplied
// defaults when the record has none.
func (r Record) EffectiveReminderDays(defaults []int) []int {
	if len(r.ReminderDays) > 0 {
		return r.ReminderDays
	}
	return defaults
}

// NormalizeReminderDays deduplicates and sorts offsets descending (the
// display convention; firing is per-offset and order-independent).
// Negative offsets are an error.
func NormalizeReminderDays(days []int) ([]int, error) {
	var out []int
	for _, d := range days {
		if d < 0 {
			return nil, errors.New(config.ErrReminderNegative)
		}
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b int) int { return b - a })
	return out, nil
}

// ParseDate parses a birthday date string in "YYYY-MM-DD" or "MM-DD" form.
// A missing year is returned as zero. Feb 29 is accepted for yearless dates
// (validated against a leap reference year) and for leap birth years.
func ParseDate(value string) (year, month, day int, err error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	switch len(parts) {
	case 2:
		month, day, err = parseMonthDay(parts[0], parts[1])
		if err != nil {
			return 0, 0, 0, err
		}
		year = 0
	case 3:
		year, err = strconv.Atoi(parts[0])
		if err != nil || year < 1 || year > 9999 {
			return 0, 0, 0, fmt.Errorf("%s: %q", config.ErrDateParse, value)
		}
		month, day, err = parseMonthDay(parts[1], parts[2])
		if err != nil {
			return 0, 0, 0, err
		}
	default:
		return 0, 0, 0, fmt.Errorf("%s: %q", config.ErrDateParse, value)
	}

	// Validate against the birth year itself when known (a Feb 29 birth
	// requires a leap birth year), else against a leap reference year.
	ref := year
	if ref == 0 {
		ref = config.DefaultLeapYear
	}
	t := time.Date(ref, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(t.Month()) != month || t.Day() != day || t.Year() != ref {
		return 0, 0, 0, fmt.Errorf("%s: %q", config.ErrDateInvalid, value)
	}
	return year, month, day, nil
}

func parseMonthDay(ms, ds string) (month, day int, err error) {
	month, errM := strconv.Atoi(ms)
	day, errD := strconv.Atoi(ds)
	if errM != nil || errD != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, fmt.Errorf("%s: %s-%s", config.ErrDateParse, ms, ds)
	}
	return month, day, nil
}
