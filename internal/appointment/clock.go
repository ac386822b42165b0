package appointment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errBadClock = errors.New("clock time must be HH:MM")

// ParseClock converts "HH:MM" to minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", errBadClock, s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", errBadClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", errBadClock, s)
	}

	return h*60 + m, nil
}

// FormatClock is the inverse of ParseClock.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func parseRange(start, end string) (int, int, bool) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, 0, false
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, 0, false
	}
	return s, e, true
}
