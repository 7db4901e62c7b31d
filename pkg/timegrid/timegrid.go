// Package timegrid maps clinic-local wall-clock times onto a fixed-resolution
// row grid shared by conflict detection and calendar layout. All functions are
// pure; the package holds no state and performs no I/O.
package timegrid

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the number of minutes in a calendar day.
const MinutesPerDay = 24 * 60

// Errors returned by grid arithmetic.
var (
	ErrCrossesMidnight = errors.New("interval crosses midnight")
	ErrBeforeGridStart = errors.New("time is before the grid start")
	ErrInvalidTime     = errors.New("invalid time of day")
)

// TimeOfDay is a clinic-local time of day expressed as minutes from midnight.
// The valid range is [0, 1440). It marshals to and from "HH:MM".
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" (24-hour clock) into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return TimeOfDay(h*60 + m), nil
}

// Valid reports whether t falls within a single calendar day.
func (t TimeOfDay) Valid() bool { return t >= 0 && t < MinutesPerDay }

// Hour returns the hour component (0-23).
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component (0-59).
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Add returns t shifted by the given number of minutes. The result may exceed
// the end of the day; callers validate with Valid or CheckInterval.
func (t TimeOfDay) Add(minutes int) TimeOfDay { return t + TimeOfDay(minutes) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalJSON renders the time as "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidTime, int(t))
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts "HH:MM".
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// CheckInterval validates a half-open [start, end) interval within one
// calendar date. Intervals that would span midnight are rejected rather than
// truncated.
func CheckInterval(start, end TimeOfDay) error {
	if !start.Valid() {
		return fmt.Errorf("%w: start %d", ErrInvalidTime, int(start))
	}
	if end <= start {
		return fmt.Errorf("%w: start %s, end %s", ErrInvalidTime, start, end)
	}
	if end > MinutesPerDay {
		return fmt.Errorf("%w: start %s, duration %d min", ErrCrossesMidnight, start, int(end-start))
	}
	return nil
}

// ToRow converts a time of day to a grid row index. Times that do not align
// to a slot boundary round down, so an interval's first row always contains
// its true start.
func ToRow(t TimeOfDay, gridStartHour, slotMinutes int) (int, error) {
	if slotMinutes <= 0 {
		return 0, fmt.Errorf("slot minutes must be positive, got %d", slotMinutes)
	}
	if !t.Valid() {
		return 0, fmt.Errorf("%w: %d minutes", ErrInvalidTime, int(t))
	}
	offset := int(t) - gridStartHour*60
	if offset < 0 {
		return 0, fmt.Errorf("%w: %s before %02d:00", ErrBeforeGridStart, t, gridStartHour)
	}
	return offset / slotMinutes, nil
}

// RowSpan converts a duration to a number of grid rows, rounding up so a
// partial final slot is never understated.
func RowSpan(durationMinutes, slotMinutes int) int {
	if slotMinutes <= 0 || durationMinutes <= 0 {
		return 0
	}
	return (durationMinutes + slotMinutes - 1) / slotMinutes
}
