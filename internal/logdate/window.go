// Package logdate computes which workdays need a log entry and decides
// whether scraped note titles already cover them.
package logdate

import "time"

// Workdays returns every weekday from the Monday of ref's week through ref
// inclusive, in ascending order.
func Workdays(ref time.Time) []time.Time {
	ref = Day(ref)
	monday := Monday(ref)

	var out []time.Time
	for d := monday; !d.After(ref); d = d.AddDate(0, 0, 1) {
		if IsWeekday(d) {
			out = append(out, d)
		}
	}
	return out
}

// TrailingWorkdays walks back n calendar days starting at ref (ref itself is
// the first day) and keeps the weekdays. The result is newest first.
func TrailingWorkdays(ref time.Time, n int) []time.Time {
	ref = Day(ref)
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		d := ref.AddDate(0, 0, -i)
		if IsWeekday(d) {
			out = append(out, d)
		}
	}
	return out
}

// Monday returns the Monday of the week containing t. Weeks start on Monday,
// so a Sunday belongs to the week that began six days earlier.
func Monday(t time.Time) time.Time {
	t = Day(t)
	offset := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		offset = 6
	}
	return t.AddDate(0, 0, -offset)
}

// IsWeekday reports whether t falls on Monday through Friday.
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
