// Package availability owns clinician availability: recurring weekly windows
// plus date-specific exceptions. A clinician with no resolved window for a
// date is unavailable; the model fails closed.
package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/pkg/timegrid"
)

// Errors returned by availability configuration and lookups.
var (
	ErrNotFound      = errors.New("availability record not found")
	ErrWindowOverlap = errors.New("availability windows overlap")
)

// Window maps to the availability_window table: a recurring weekly block
// during which the clinician accepts bookings.
type Window struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	ClinicianID uuid.UUID         `db:"clinician_id" json:"clinician_id"`
	DayOfWeek   time.Weekday      `db:"day_of_week" json:"day_of_week"`
	StartTime   timegrid.TimeOfDay `db:"start_time" json:"start_time"`
	EndTime     timegrid.TimeOfDay `db:"end_time" json:"end_time"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// Validate checks the window's interval in isolation.
func (w *Window) Validate() error {
	if w.ClinicianID == uuid.Nil {
		return fmt.Errorf("clinician_id is required")
	}
	if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
		return fmt.Errorf("day_of_week must be 0-6, got %d", w.DayOfWeek)
	}
	return timegrid.CheckInterval(w.StartTime, w.EndTime)
}

// Exception maps to the availability_exception table: a date-specific
// override that takes precedence over the recurring rule for that date.
// Blocked marks the whole day unavailable; otherwise StartTime/EndTime define
// the replacement window.
type Exception struct {
	ID          uuid.UUID           `db:"id" json:"id"`
	ClinicianID uuid.UUID           `db:"clinician_id" json:"clinician_id"`
	Date        timegrid.Date       `db:"date" json:"date"`
	Blocked     bool                `db:"blocked" json:"blocked"`
	StartTime   *timegrid.TimeOfDay `db:"start_time" json:"start_time,omitempty"`
	EndTime     *timegrid.TimeOfDay `db:"end_time" json:"end_time,omitempty"`
	Reason      *string             `db:"reason" json:"reason,omitempty"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

// Validate checks the exception's shape.
func (e *Exception) Validate() error {
	if e.ClinicianID == uuid.Nil {
		return fmt.Errorf("clinician_id is required")
	}
	if e.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if e.Blocked {
		return nil
	}
	if e.StartTime == nil || e.EndTime == nil {
		return fmt.Errorf("a non-blocking exception requires start_time and end_time")
	}
	return timegrid.CheckInterval(*e.StartTime, *e.EndTime)
}

// Interval is a resolved availability window for a concrete date.
type Interval struct {
	Start timegrid.TimeOfDay `json:"start"`
	End   timegrid.TimeOfDay `json:"end"`
}

// Contains reports whether [start, end) lies fully inside the interval.
// Partial overlap is insufficient for booking purposes.
func (iv Interval) Contains(start, end timegrid.TimeOfDay) bool {
	return start >= iv.Start && end <= iv.End
}

// overlaps reports half-open overlap between two windows on the same day.
func overlaps(aStart, aEnd, bStart, bEnd timegrid.TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}
