package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/slots"
	"github.com/clinicore/clinicore/internal/platform/events"
	"github.com/clinicore/clinicore/pkg/timegrid"
)

// AvailabilityChecker answers whether an interval lies fully inside the
// clinician's resolved availability for a date.
type AvailabilityChecker interface {
	IsWithinAvailability(ctx context.Context, clinicianID uuid.UUID, date timegrid.Date, start, end timegrid.TimeOfDay) (bool, error)
}

// SlotFinder locates the earliest bookable slot for a request; used by the
// auto-placement booking path.
type SlotFinder interface {
	First(ctx context.Context, req slots.Request) (slots.Slot, bool, error)
}

// ServiceConfig carries the scheduling knobs the service needs at runtime.
type ServiceConfig struct {
	// Granularity for auto-placement candidate starts, in minutes.
	GranularityMinutes int
	// How many minutes before the scheduled start check-in is allowed.
	EarlyStartMinutes int
	// Clinic-local zone; all dates and times in the engine are civil values
	// in this zone.
	Location *time.Location
}

// Service implements booking and the appointment lifecycle. Every write that
// depends on a conflict check runs inside tx.InDay so the check and the write
// commit atomically against one clinician day.
type Service struct {
	repo         Repository
	tx           TxRunner
	detector     *Detector
	availability AvailabilityChecker
	finder       SlotFinder
	publisher    events.Publisher
	cfg          ServiceConfig
	now          func() time.Time
}

func NewService(repo Repository, tx TxRunner, detector *Detector, avail AvailabilityChecker, finder SlotFinder, publisher events.Publisher, cfg ServiceConfig) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	s := &Service{
		repo:         repo,
		tx:           tx,
		detector:     detector,
		availability: avail,
		finder:       finder,
		publisher:    publisher,
		cfg:          cfg,
	}
	s.now = func() time.Time { return time.Now().In(cfg.Location) }
	return s
}

// SetClock overrides the service clock; tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// BookRequest is the booking contract. Start is optional: when absent the
// service auto-places the appointment into the earliest bookable slot of the
// requested date.
type BookRequest struct {
	PatientID       uuid.UUID           `json:"patient_id"`
	ClinicianID     uuid.UUID           `json:"clinician_id"`
	Date            timegrid.Date       `json:"date"`
	Type            Type                `json:"appointment_type"`
	Format          Format              `json:"format"`
	DurationMinutes int                 `json:"duration_minutes"`
	Start           *timegrid.TimeOfDay `json:"start,omitempty"`
	Location        *string             `json:"location,omitempty"`
}

// Book creates a scheduled appointment. With an explicit start it verifies
// availability and conflicts for that interval; without one it finds the
// earliest open slot on the date. Both paths run the checks and the insert in
// one transaction.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if req.Format == "" {
		req.Format = DefaultFormat
	}
	if req.DurationMinutes <= 0 {
		d, ok := DefaultDurations[req.Type]
		if !ok {
			return nil, fmt.Errorf("unknown appointment type %q", req.Type)
		}
		req.DurationMinutes = d
	}

	a := &Appointment{
		ID:          uuid.New(),
		PatientID:   req.PatientID,
		ClinicianID: req.ClinicianID,
		Date:        req.Date,
		Type:        req.Type,
		Format:      req.Format,
		Location:    req.Location,
		Status:      StatusScheduled,
	}

	err := s.tx.InDay(ctx, req.ClinicianID, req.Date, func(ctx context.Context) error {
		if req.Start != nil {
			a.StartTime = *req.Start
			a.EndTime = req.Start.Add(req.DurationMinutes)
		} else {
			slot, ok, err := s.finder.First(ctx, slots.Request{
				ClinicianID:        req.ClinicianID,
				From:               req.Date,
				To:                 req.Date,
				DurationMinutes:    req.DurationMinutes,
				GranularityMinutes: s.cfg.GranularityMinutes,
			})
			if err != nil {
				return fmt.Errorf("auto-place: %w", err)
			}
			if !ok {
				return fmt.Errorf("%w: %s on %s", ErrNoAvailability, req.Type, req.Date)
			}
			a.StartTime = slot.Start
			a.EndTime = slot.End
		}

		if err := a.Validate(); err != nil {
			return err
		}

		within, err := s.availability.IsWithinAvailability(ctx, a.ClinicianID, a.Date, a.StartTime, a.EndTime)
		if err != nil {
			return fmt.Errorf("check availability: %w", err)
		}
		if !within {
			return fmt.Errorf("%w: %s-%s on %s", ErrOutsideAvailability, a.StartTime, a.EndTime, a.Date)
		}
		if err := s.detector.Check(ctx, a.ClinicianID, a.Date, a.StartTime, a.EndTime, nil); err != nil {
			return err
		}
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.New(events.TypeAppointmentCreated, a.ID, a.PatientID, a.ClinicianID))
	return a, nil
}

// Confirm moves a scheduled appointment to confirmed. The conflict check runs
// again inside the same transaction as the status write: another booking may
// have taken the interval since scheduling. On conflict the appointment stays
// scheduled and the caller gets ErrSlotNoLongerAvailable to rebook.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var a *Appointment
	err := s.withAppointmentDay(ctx, id, func(ctx context.Context, cur *Appointment) error {
		if err := Transition(cur, StatusConfirmed, s.now(), s.cfg.EarlyStartMinutes); err != nil {
			return err
		}
		if err := s.detector.Check(ctx, cur.ClinicianID, cur.Date, cur.StartTime, cur.EndTime, &cur.ID); err != nil {
			var ce *ConflictError
			if errors.As(err, &ce) {
				return fmt.Errorf("%w: %v", ErrSlotNoLongerAvailable, err)
			}
			return err
		}
		a = cur
		return s.repo.Update(ctx, cur)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.New(events.TypeAppointmentConfirmed, a.ID, a.PatientID, a.ClinicianID))
	return a, nil
}

// Start checks the patient in, subject to the early-start gate.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusInProgress)
}

// Complete finishes an appointment.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted)
}

// MarkNoShow records that the patient did not arrive. Only valid after the
// scheduled start has passed; evaluated at call time, never by a timer.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusNoShow)
}

// Cancel terminally cancels the appointment, freeing its interval.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	var a *Appointment
	err := s.withAppointmentDay(ctx, id, func(ctx context.Context, cur *Appointment) error {
		if err := Transition(cur, StatusCancelled, s.now(), s.cfg.EarlyStartMinutes); err != nil {
			return err
		}
		if reason != "" {
			cur.CancellationReason = &reason
		}
		a = cur
		return s.repo.Update(ctx, cur)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.New(events.TypeAppointmentCancelled, a.ID, a.PatientID, a.ClinicianID))
	return a, nil
}

// RescheduleRequest moves an appointment to a new interval. Omitting Start
// auto-places on the new date.
type RescheduleRequest struct {
	Date  timegrid.Date       `json:"date"`
	Start *timegrid.TimeOfDay `json:"start,omitempty"`
}

// Reschedule cancels the appointment and books a replacement carrying a
// back-reference to it. The time of an appointment is never mutated in place,
// so the original interval stays in history. Cancel and rebook commit as one
// transaction: if the new interval cannot be booked, the original keeps its
// slot. Day locks are taken in date order so two concurrent reschedules
// cannot lock the same pair of days in opposite order.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req RescheduleRequest) (*Appointment, error) {
	probe, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	firstDay, secondDay := probe.Date, req.Date
	if secondDay.Before(firstDay) {
		firstDay, secondDay = secondDay, firstDay
	}

	var replacement *Appointment
	err = s.tx.InDay(ctx, probe.ClinicianID, firstDay, func(ctx context.Context) error {
		return s.tx.InDay(ctx, probe.ClinicianID, secondDay, func(ctx context.Context) error {
			old, err := s.repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			reason := "rescheduled"
			if err := Transition(old, StatusCancelled, s.now(), s.cfg.EarlyStartMinutes); err != nil {
				return err
			}
			old.CancellationReason = &reason
			if err := s.repo.Update(ctx, old); err != nil {
				return err
			}

			next := &Appointment{
				ID:                uuid.New(),
				PatientID:         old.PatientID,
				ClinicianID:       old.ClinicianID,
				Date:              req.Date,
				Type:              old.Type,
				Format:            old.Format,
				Location:          old.Location,
				Status:            StatusScheduled,
				RescheduledFromID: &old.ID,
			}
			duration := old.DurationMinutes()
			if req.Start != nil {
				next.StartTime = *req.Start
				next.EndTime = req.Start.Add(duration)
			} else {
				slot, ok, err := s.finder.First(ctx, slots.Request{
					ClinicianID:        old.ClinicianID,
					From:               req.Date,
					To:                 req.Date,
					DurationMinutes:    duration,
					GranularityMinutes: s.cfg.GranularityMinutes,
				})
				if err != nil {
					return fmt.Errorf("auto-place: %w", err)
				}
				if !ok {
					return fmt.Errorf("%w: %s on %s", ErrNoAvailability, old.Type, req.Date)
				}
				next.StartTime = slot.Start
				next.EndTime = slot.End
			}

			if err := next.Validate(); err != nil {
				return err
			}
			within, err := s.availability.IsWithinAvailability(ctx, next.ClinicianID, next.Date, next.StartTime, next.EndTime)
			if err != nil {
				return fmt.Errorf("check availability: %w", err)
			}
			if !within {
				return fmt.Errorf("%w: %s-%s on %s", ErrOutsideAvailability, next.StartTime, next.EndTime, next.Date)
			}
			if err := s.detector.Check(ctx, next.ClinicianID, next.Date, next.StartTime, next.EndTime, nil); err != nil {
				return err
			}
			if err := s.repo.Create(ctx, next); err != nil {
				return err
			}
			replacement = next
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.New(events.TypeAppointmentCancelled, id, replacement.PatientID, replacement.ClinicianID))
	s.publisher.Publish(ctx, events.New(events.TypeAppointmentCreated, replacement.ID, replacement.PatientID, replacement.ClinicianID))
	return replacement, nil
}

// Get fetches one appointment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByPatient pages through a patient's appointments.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// ListByClinician pages through a clinician's appointments.
func (s *Service) ListByClinician(ctx context.Context, clinicianID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByClinician(ctx, clinicianID, limit, offset)
}

// ListForRange returns a clinician's appointments over a date range; feeds
// the calendar projection.
func (s *Service) ListForRange(ctx context.Context, clinicianID uuid.UUID, from, to timegrid.Date) ([]*Appointment, error) {
	return s.repo.ListForRange(ctx, clinicianID, from, to)
}

// transition loads, transitions, and persists under the day lock.
func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	var a *Appointment
	err := s.withAppointmentDay(ctx, id, func(ctx context.Context, cur *Appointment) error {
		if err := Transition(cur, to, s.now(), s.cfg.EarlyStartMinutes); err != nil {
			return err
		}
		a = cur
		return s.repo.Update(ctx, cur)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// withAppointmentDay resolves the appointment's clinician day, then re-reads
// it inside the day transaction so fn sees the committed state, not a
// pre-lock snapshot.
func (s *Service) withAppointmentDay(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, a *Appointment) error) error {
	probe, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.tx.InDay(ctx, probe.ClinicianID, probe.Date, func(ctx context.Context) error {
		cur, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return fn(ctx, cur)
	})
}
