package daily

import "time"

// Day boundaries are computed in UTC so that every player worldwide rotates
// to the next puzzle at the same instant.

// DateUTC truncates an instant to UTC midnight.
func DateUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayString formats an instant as its UTC calendar day, used for daily
// rollover comparisons in persisted state.
func DayString(t time.Time) string {
	return DateUTC(t).Format("2006-01-02")
}

// PuzzleID maps a launch date and the current instant to a stable item ID
// in [1, catalogSize], cycling through the whole catalog once every
// catalogSize days. Returns 0 when the catalog is empty.
func PuzzleID(start, today time.Time, catalogSize int) int {
	if catalogSize <= 0 {
		return 0
	}
	diff := DateUTC(today).Sub(DateUTC(start))
	if diff < 0 {
		diff = -diff
	}
	days := int(diff.Hours() / 24)
	return days%catalogSize + 1
}
