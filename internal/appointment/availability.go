package appointment

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidSchedule = errors.New("invalid availability schedule")

// Validate checks that b names a weekday and a non-empty HH:MM window.
func (b AvailabilityBlock) Validate() error {
	if b.Day < 0 || b.Day > 6 {
		return fmt.Errorf("availability day %d out of range 0-6", b.Day)
	}
	start, end, ok := parseRange(b.Start, b.End)
	if !ok {
		return fmt.Errorf("availability block %q-%q: %w", b.Start, b.End, errBadClock)
	}
	if start >= end {
		return fmt.Errorf("availability block %q-%q: start must be before end", b.Start, b.End)
	}
	return nil
}

func ValidateSchedule(blocks []AvailabilityBlock) error {
	for i, b := range blocks {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("%w: block %d: %w", ErrInvalidSchedule, i, err)
		}
	}
	return nil
}

// Covers reports whether [start,end) on date lies inside a single declared block. A
// practitioner with no declared schedule is treated as always available.
func (p *Practitioner) Covers(date time.Time, start, end string) bool {
	if len(p.Schedule) == 0 {
		return true
	}

	s, e, ok := parseRange(start, end)
	if !ok {
		return false
	}

	weekday := int(date.Weekday())
	for _, b := range p.Schedule {
		if b.Day != weekday {
			continue
		}
		bs, be, ok := parseRange(b.Start, b.End)
		if !ok {
			continue
		}
		if s >= bs && e <= be {
			return true
		}
	}
	return false
}
