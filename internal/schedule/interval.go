package schedule

import (
	"time"

	"example.com/scheduling/internal/domain"
)

// ToMinutes parses a wall-clock "HH:MM" string into minutes since midnight.
func ToMinutes(hhmm string) (int, error) {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return 0, domain.Invalid("time", "expected HH:MM, got "+hhmm)
	}
	hours, ok := twoDigits(hhmm[0], hhmm[1])
	if !ok || hours > 23 {
		return 0, domain.Invalid("time", "hour out of range in "+hhmm)
	}
	minutes, ok := twoDigits(hhmm[3], hhmm[4])
	if !ok || minutes > 59 {
		return 0, domain.Invalid("time", "minute out of range in "+hhmm)
	}
	return hours*60 + minutes, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
