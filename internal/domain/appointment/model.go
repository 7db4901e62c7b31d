// Package appointment owns the appointment entity, its lifecycle state
// machine, conflict detection, and the booking service. Appointments are
// never hard-deleted; cancellation is a terminal status so history survives
// for audit.
package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/pkg/timegrid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no-show"
)

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// HoldsSlot reports whether an appointment in this status still occupies its
// interval for conflict purposes. Cancelled and no-show free the time.
func (s Status) HoldsSlot() bool {
	return s != StatusCancelled && s != StatusNoShow
}

var validStatuses = map[Status]bool{
	StatusScheduled: true, StatusConfirmed: true, StatusInProgress: true,
	StatusCompleted: true, StatusCancelled: true, StatusNoShow: true,
}

// Type is the kind of clinical session being booked.
type Type string

const (
	TypeAssessment     Type = "assessment"
	TypeTherapySession Type = "therapy-session"
	TypeConsultation   Type = "consultation"
	TypeFollowUp       Type = "follow-up"
)

// DefaultDurations holds the typical duration per appointment type, in
// minutes. These are hints for slot generation and request defaults, not hard
// constraints.
var DefaultDurations = map[Type]int{
	TypeAssessment:     90,
	TypeTherapySession: 50,
	TypeConsultation:   30,
	TypeFollowUp:       20,
}

// Format is how the session is delivered.
type Format string

const (
	FormatInPerson  Format = "in-person"
	FormatVirtual   Format = "virtual"
	FormatHomeVisit Format = "home-visit"
	FormatPhone     Format = "phone"
)

// DefaultFormat substitutes for appointments stored without a format.
const DefaultFormat = FormatInPerson

// RequiresLocation reports whether the format needs a physical location.
func (f Format) RequiresLocation() bool {
	return f == FormatInPerson || f == FormatHomeVisit
}

var validFormats = map[Format]bool{
	FormatInPerson: true, FormatVirtual: true, FormatHomeVisit: true, FormatPhone: true,
}

// Appointment maps to the appointment table. Times are clinic-local: a civil
// date plus minutes-from-midnight start and end with start < end, both on the
// same calendar date.
type Appointment struct {
	ID                 uuid.UUID          `db:"id" json:"id"`
	PatientID          uuid.UUID          `db:"patient_id" json:"patient_id"`
	ClinicianID        uuid.UUID          `db:"clinician_id" json:"clinician_id"`
	Date               timegrid.Date      `db:"date" json:"date"`
	StartTime          timegrid.TimeOfDay `db:"start_time" json:"start_time"`
	EndTime            timegrid.TimeOfDay `db:"end_time" json:"end_time"`
	Type               Type               `db:"appointment_type" json:"appointment_type"`
	Format             Format             `db:"format" json:"format"`
	Location           *string            `db:"location" json:"location,omitempty"`
	Status             Status             `db:"status" json:"status"`
	CancellationReason *string            `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	RescheduledFromID  *uuid.UUID         `db:"rescheduled_from_id" json:"rescheduled_from_id,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// DurationMinutes is the implied appointment length.
func (a *Appointment) DurationMinutes() int {
	return int(a.EndTime - a.StartTime)
}

// StartsAt combines the appointment's date and start time in the clinic zone.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	return a.Date.At(a.StartTime, loc)
}

// Validate checks the appointment's structural invariants.
func (a *Appointment) Validate() error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.ClinicianID == uuid.Nil {
		return fmt.Errorf("clinician_id is required")
	}
	if a.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if err := timegrid.CheckInterval(a.StartTime, a.EndTime); err != nil {
		return err
	}
	if _, ok := DefaultDurations[a.Type]; !ok {
		return fmt.Errorf("invalid appointment type: %s", a.Type)
	}
	if !validFormats[a.Format] {
		return fmt.Errorf("invalid format: %s", a.Format)
	}
	if a.Format.RequiresLocation() && (a.Location == nil || *a.Location == "") {
		return fmt.Errorf("location is required for %s appointments", a.Format)
	}
	if a.Status != "" && !validStatuses[a.Status] {
		return fmt.Errorf("invalid status: %s", a.Status)
	}
	return nil
}
