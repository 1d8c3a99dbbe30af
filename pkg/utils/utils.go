package utils

import (
	"fmt"
	"time"
)

func FormatRoundedUnit(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds > 3600 {
		return fmt.Sprintf("%dh", int64(seconds/3600))
	}
	return fmt.Sprintf("%dm", int64(seconds/60))
}

// FormatAgo renders how long ago t was relative to now, e.g. "5m ago"
func FormatAgo(t, now time.Time) string {
	return FormatRoundedUnit(int64(now.Sub(t).Seconds())) + " ago"
}
