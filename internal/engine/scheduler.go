package engine

import (
	"slices"
	"strings"
	"time"
)

// Due is a single reminder that must fire: the record, the offset that
// matched, and the computed days until the occurrence (equal by definition).
type Due struct {
	Record    Record
	Offset    int
	DaysUntil int
}

// DueToday computes the reminders due on the given day.
//
// For each record, each effective offset is compared against DaysUntil; a
// pair is due iff they are equal. The function is pure: same inputs, same
// output, including order (days-until ascending, then name ascending, then
// offset descending), so downstream automation sees a deterministic stream.
func DueToday(records []Record, defaults []int, today time.Time) []Due {
	var due []Due
	for _, r := range records {
		if !ValidMonthDay(r.Month, r.Day) {
			// A corrupt record must not block the rest of the scan.
			continue
		}
		days := DaysUntil(r.Month, r.Day, today)
		for _, off := range r.EffectiveReminderDays(defaults) {
			if days == off {
				due = append(due, Due{Record: r, Offset: off, DaysUntil: days})
			}
		}
	}

	slices.SortStableFunc(due, func(a, b Due) int {
		if a.DaysUntil != b.DaysUntil {
			return a.DaysUntil - b.DaysUntil
		}
		if c := strings.Compare(a.Record.Name, b.Record.Name); c != 0 {
			return c
		}
		return b.Offset - a.Offset
	})
	return due
}
