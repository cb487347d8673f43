package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidHour marks a working-hours bound outside [0,23].
var ErrInvalidHour = errors.New("hour out of range [0,23]")

// ValidateWindow rejects hour bounds outside [0,23]. Out-of-range values are
// a configuration error, never silently clamped.
func ValidateWindow(startHour, endHour int) error {
	if startHour < 0 || startHour > 23 {
		return fmt.Errorf("work window start hour %d: %w", startHour, ErrInvalidHour)
	}
	if endHour < 0 || endHour > 23 {
		return fmt.Errorf("work window end hour %d: %w", endHour, ErrInvalidHour)
	}
	return nil
}

// WithinWindow reports whether now's local hour falls inside the working-hours
// window [startHour, endHour). Boundary semantics: inclusive start, exclusive
// end.
//
//   - startHour == endHour is the "always on" sentinel and matches every hour.
//   - startHour < endHour is a same-day window (9,21 matches 09:00–20:59).
//   - startHour > endHour wraps past midnight (21,6 matches 21:00–05:59).
//
// Callers are expected to pass now already converted to the scheduler's
// location; WithinWindow only looks at the hour.
func WithinWindow(startHour, endHour int, now time.Time) bool {
	h := now.Hour()
	switch {
	case startHour == endHour:
		return true
	case startHour < endHour:
		return h >= startHour && h < endHour
	default:
		return h >= startHour || h < endHour
	}
}
