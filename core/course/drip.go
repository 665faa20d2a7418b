package course

import "time"

// ReleaseDate returns ref + delayDays calendar days.
// Days are added on the calendar of ref's location, so a DST change never shifts the result by a day.
// A negative delay is treated as 0: the result is never before ref.
func ReleaseDate(ref time.Time, delayDays int) time.Time {
	if delayDays <= 0 {
		return ref
	}
	return ref.AddDate(0, 0, delayDays)
}

// sameDay reports whether a & b fall on the same calendar day of a's location.
func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
