package schedule

import "time"

// Band is how urgent an open task is, from plenty of time left to past the
// deadline.
type Band string

const (
	BandGreen   Band = "green"
	BandYellow  Band = "yellow"
	BandRed     Band = "red"
	BandOverdue Band = "overdue"
)

// Classification is the derived due-state of one task occurrence at a given
// instant.
type Classification struct {
	Deadline       time.Time
	Band           Band
	HoursRemaining float64
}

// Deadline is the instant a completion becomes late: the occurrence anchor
// plus the completion window. Window days are fixed 24-hour spans so the
// remaining-hours arithmetic stays proportional to the window regardless of
// DST shifts.
func Deadline(anchor time.Time, windowDays int) time.Time {
	return anchor.Add(time.Duration(windowDays) * 24 * time.Hour)
}

// Classify buckets a task occurrence by the share of its window still
// remaining at now. Thresholds are inclusive: exactly 25% left is red,
// exactly 50% left is yellow, and now == deadline is overdue.
func Classify(anchor time.Time, windowDays int, now time.Time) Classification {
	deadline := Deadline(anchor, windowDays)
	total := float64(windowDays) * 24
	remaining := deadline.Sub(now).Hours()

	var band Band
	switch {
	case !now.Before(deadline):
		band = BandOverdue
	case remaining <= total*0.25:
		band = BandRed
	case remaining <= total*0.5:
		band = BandYellow
	default:
		band = BandGreen
	}

	return Classification{Deadline: deadline, Band: band, HoursRemaining: remaining}
}
