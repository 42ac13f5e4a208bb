package utils

import (
	"fmt"
	"time"
)

// FormatSince returns a short relative form of the time elapsed between t
// and now, e.g. "15m ago".
func FormatSince(t, now time.Time) string {
	if t.IsZero() {
		return "N/A"
	}

	const (
		day   = 24 * time.Hour
		week  = 7 * day
		month = 30 * day
		year  = 365 * day
	)

	since := now.Sub(t)
	if since < 0 {
		return "just now"
	}

	switch {
	case since < time.Minute:
		return fmt.Sprintf("%ds ago", int(since.Seconds()))
	case since < time.Hour:
		return fmt.Sprintf("%dm ago", int(since.Minutes()))
	case since < day:
		return fmt.Sprintf("%dh ago", int(since.Hours()))
	case since < week:
		return fmt.Sprintf("%dd ago", int(since/day))
	case since < month:
		return fmt.Sprintf("%dw ago", int(since/week))
	case since < year:
		return fmt.Sprintf("%dmo ago", int(since/month))
	}
	return fmt.Sprintf("%dy ago", int(since/year))
}

// Elapsed is how long a scan ran, rounded to tenths of a second. A scan
// still running is measured up to now. Nil start means it never ran.
func Elapsed(start, end *time.Time, now time.Time) string {
	if start == nil {
		return "-"
	}
	stop := now
	if end != nil {
		stop = *end
	}
	d := stop.Sub(*start)
	if d < 0 {
		d = 0
	}
	return d.Round(100 * time.Millisecond).String()
}
