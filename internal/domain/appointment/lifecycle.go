package appointment

import (
	"errors"
	"fmt"
	"time"
)

// Business errors surfaced to callers. None of these are retried
// automatically; the caller decides how to react.
var (
	ErrNotFound              = errors.New("appointment not found")
	ErrNoAvailability        = errors.New("no bookable slot in the requested range")
	ErrOutsideAvailability   = errors.New("interval is outside the clinician's availability")
	ErrSlotNoLongerAvailable = errors.New("slot is no longer available")
	ErrTooEarlyToStart       = errors.New("too early to start the appointment")
	ErrNoShowBeforeStart     = errors.New("cannot record a no-show before the scheduled start")
)

// InvalidTransitionError reports a lifecycle transition the state machine
// forbids, naming both states so the caller can act on it.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// transitions is the full lifecycle table. Absence means forbidden; terminal
// states have no outgoing edges at all.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusNoShow},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusNoShow:     {},
}

// CanTransition reports whether the lifecycle table permits from -> to. Time
// gates (early start, no-show) are checked separately by Transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition applies a lifecycle change to the appointment, enforcing the
// table plus the time gates: InProgress is rejected more than
// earlyStartMinutes before the scheduled start, and NoShow only becomes
// settable once the scheduled start has passed. Both gates are evaluated
// lazily against now (clinic-local); there is no timer-driven state change.
// On success the appointment's status is updated in place.
func Transition(a *Appointment, to Status, now time.Time, earlyStartMinutes int) error {
	if !CanTransition(a.Status, to) {
		return &InvalidTransitionError{From: a.Status, To: to}
	}

	switch to {
	case StatusInProgress:
		earliest := a.StartsAt(now.Location()).Add(-time.Duration(earlyStartMinutes) * time.Minute)
		if now.Before(earliest) {
			return fmt.Errorf("%w: starts at %s, earliest check-in %s",
				ErrTooEarlyToStart, a.StartsAt(now.Location()).Format(time.RFC3339), earliest.Format(time.RFC3339))
		}
	case StatusNoShow:
		if !now.After(a.StartsAt(now.Location())) {
			return fmt.Errorf("%w: scheduled start is %s",
				ErrNoShowBeforeStart, a.StartsAt(now.Location()).Format(time.RFC3339))
		}
	}

	a.Status = to
	return nil
}
