package schedule

import "time"

// NextAnchor returns the instant the next occurrence becomes available after
// a completion at from. Daily and weekly shifts are plain calendar-day
// additions. Monthly and yearly shifts keep the day-of-month where it exists
// and otherwise clamp to the last day of the target month, so a task anchored
// on Jan 31 lands on Feb 28 (or 29), never on Mar 2/3.
func NextAnchor(c Cadence, from time.Time) time.Time {
	switch c {
	case Daily:
		return from.AddDate(0, 0, 1)
	case Weekly:
		return from.AddDate(0, 0, 7)
	case Monthly:
		return addMonthsClamped(from, 1)
	case Yearly:
		return addMonthsClamped(from, 12)
	}
	// Unreachable for a validated Cadence.
	return from
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(first.Month(), first.Year()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(month time.Month, year int) int {
	// Day zero of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
