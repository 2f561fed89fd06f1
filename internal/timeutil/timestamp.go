package timeutil

import (
	"fmt"
	"time"
)

// FormatTimestamp formats a playback position as minutes, seconds and
// milliseconds. Hours are only included when needed.
//
//	FormatTimestamp(1500 * time.Millisecond) // 00:01.500
//	FormatTimestamp(2*time.Hour + time.Minute) // 2:01:00.000
func FormatTimestamp(duration time.Duration) string {
	sign := ""
	if duration < 0 {
		sign = "-"
		duration = -duration
	}

	duration = duration.Round(time.Millisecond)
	hours := int64(duration / time.Hour)
	minutes := int64(duration/time.Minute) % 60
	seconds := int64(duration/time.Second) % 60
	milliseconds := int64(duration/time.Millisecond) % 1000

	if hours > 0 {
		return fmt.Sprintf("%s%d:%02d:%02d.%03d", sign, hours, minutes, seconds, milliseconds)
	}
	return fmt.Sprintf("%s%02d:%02d.%03d", sign, minutes, seconds, milliseconds)
}
