package dates

import "time"

// AddCalendarMonths adds n calendar months to t, clamping the day of month to
// the last valid day of the target month. time.AddDate would normalize
// Jan 31 + 1 month into Mar 2/3; warranty end dates must land on the last day
// of February instead.
func AddCalendarMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	targetYear := year
	targetMonth := int(month) + n
	for targetMonth > 12 {
		targetMonth -= 12
		targetYear++
	}
	for targetMonth < 1 {
		targetMonth += 12
		targetYear--
	}
	if last := daysIn(targetYear, time.Month(targetMonth)); day > last {
		day = last
	}
	h, m, s := t.Clock()
	return time.Date(targetYear, time.Month(targetMonth), day, h, m, s, t.Nanosecond(), t.Location())
}

// DayBucket returns the UTC calendar-day key for t, used to scope reminder
// dedupe keys to a single day. Normalizing to UTC keeps the bucket stable no
// matter which zone the caller's clock reports.
func DayBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DayWindow returns the [start, end) bounds of the UTC calendar day
// containing t.
func DayWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
