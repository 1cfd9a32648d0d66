package lifecycle

import (
	"fmt"
	"math"
	"time"
)

const (
	minutesInDay   = 24 * 60
	minutesInMonth = 30 * minutesInDay
	minutesInYear  = 365 * minutesInDay
)

// RelativeTime describes the distance between t and now in words, with a suffix:
// "less than a minute ago", "5 minutes ago", "about 2 hours ago", "in 3 days".
// The thresholds follow the usual humanized-distance buckets: minutes up to 45,
// hours up to a day, days up to a month, months up to a year, then years.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	future := d < 0
	if future {
		d = -d
	}
	words := distance(d)
	if future {
		return "in " + words
	}
	return words + " ago"
}

func distance(d time.Duration) string {
	seconds := d.Seconds()
	minutes := int(math.Round(d.Minutes()))

	switch {
	case seconds < 30:
		return "less than a minute"
	case minutes < 2:
		return "1 minute"
	case minutes < 45:
		return fmt.Sprintf("%d minutes", minutes)
	case minutes < 90:
		return "about 1 hour"
	case minutes < minutesInDay:
		return fmt.Sprintf("about %d hours", int(math.Round(float64(minutes)/60)))
	case minutes < 42*60:
		return "1 day"
	case minutes < minutesInMonth:
		return fmt.Sprintf("%d days", int(math.Round(float64(minutes)/minutesInDay)))
	case minutes < 45*minutesInDay:
		return "about 1 month"
	case minutes < 60*minutesInDay:
		return "about 2 months"
	case minutes < minutesInYear:
		return fmt.Sprintf("%d months", int(math.Round(float64(minutes)/minutesInMonth)))
	}

	years := minutes / minutesInYear
	months := (minutes % minutesInYear) / minutesInMonth
	switch {
	case months < 3:
		return fmt.Sprintf("about %s", plural(years, "year"))
	case months < 9:
		return fmt.Sprintf("over %s", plural(years, "year"))
	default:
		return fmt.Sprintf("almost %s", plural(years+1, "year"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
