package availability

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/pkg/timegrid"
)

type Service struct {
	windows    WindowRepository
	exceptions ExceptionRepository
}

func NewService(windows WindowRepository, exceptions ExceptionRepository) *Service {
	return &Service{windows: windows, exceptions: exceptions}
}

// -- Windows --

// CreateWindow stores a recurring weekly window. Overlap with an existing
// window for the same clinician and day is a configuration error detected
// here, at write time, never merged or discovered during slot generation.
func (s *Service) CreateWindow(ctx context.Context, w *Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	existing, err := s.windows.ListByClinicianDay(ctx, w.ClinicianID, int(w.DayOfWeek))
	if err != nil {
		return err
	}
	for _, other := range existing {
		if overlaps(w.StartTime, w.EndTime, other.StartTime, other.EndTime) {
			return fmt.Errorf("%w: %s-%s collides with %s-%s",
				ErrWindowOverlap, w.StartTime, w.EndTime, other.StartTime, other.EndTime)
		}
	}
	return s.windows.Create(ctx, w)
}

// UpdateWindow rewrites a window, applying the same overlap check against all
// other windows for that clinician/day.
func (s *Service) UpdateWindow(ctx context.Context, w *Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	existing, err := s.windows.ListByClinicianDay(ctx, w.ClinicianID, int(w.DayOfWeek))
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == w.ID {
			continue
		}
		if overlaps(w.StartTime, w.EndTime, other.StartTime, other.EndTime) {
			return fmt.Errorf("%w: %s-%s collides with %s-%s",
				ErrWindowOverlap, w.StartTime, w.EndTime, other.StartTime, other.EndTime)
		}
	}
	return s.windows.Update(ctx, w)
}

func (s *Service) GetWindow(ctx context.Context, id uuid.UUID) (*Window, error) {
	return s.windows.GetByID(ctx, id)
}

func (s *Service) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	return s.windows.Delete(ctx, id)
}

func (s *Service) ListWindows(ctx context.Context, clinicianID uuid.UUID) ([]*Window, error) {
	return s.windows.ListByClinician(ctx, clinicianID)
}

// -- Exceptions --

func (s *Service) CreateException(ctx context.Context, e *Exception) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if !e.Blocked {
		existing, err := s.exceptions.ListByClinicianDate(ctx, e.ClinicianID, e.Date)
		if err != nil {
			return err
		}
		for _, other := range existing {
			if other.Blocked || other.StartTime == nil || other.EndTime == nil {
				continue
			}
			if overlaps(*e.StartTime, *e.EndTime, *other.StartTime, *other.EndTime) {
				return fmt.Errorf("%w: exception %s-%s collides with %s-%s on %s",
					ErrWindowOverlap, *e.StartTime, *e.EndTime, *other.StartTime, *other.EndTime, e.Date)
			}
		}
	}
	return s.exceptions.Create(ctx, e)
}

func (s *Service) GetException(ctx context.Context, id uuid.UUID) (*Exception, error) {
	return s.exceptions.GetByID(ctx, id)
}

func (s *Service) DeleteException(ctx context.Context, id uuid.UUID) error {
	return s.exceptions.Delete(ctx, id)
}

func (s *Service) ListExceptions(ctx context.Context, clinicianID uuid.UUID, from, to timegrid.Date) ([]*Exception, error) {
	return s.exceptions.ListByClinicianRange(ctx, clinicianID, from, to)
}

// -- Resolution --

// ResolveDay returns the clinician's bookable intervals for a date, sorted by
// start time. Date-specific exceptions take precedence over the recurring
// weekly rule: a blocking exception empties the day, and any non-blocking
// exceptions replace the recurring windows entirely. With neither exceptions
// nor windows the day resolves empty.
func (s *Service) ResolveDay(ctx context.Context, clinicianID uuid.UUID, date timegrid.Date) ([]Interval, error) {
	excs, err := s.exceptions.ListByClinicianDate(ctx, clinicianID, date)
	if err != nil {
		return nil, err
	}
	if len(excs) > 0 {
		for _, e := range excs {
			if e.Blocked {
				return nil, nil
			}
		}
		var intervals []Interval
		for _, e := range excs {
			if e.StartTime != nil && e.EndTime != nil {
				intervals = append(intervals, Interval{Start: *e.StartTime, End: *e.EndTime})
			}
		}
		sortIntervals(intervals)
		return intervals, nil
	}

	wins, err := s.windows.ListByClinicianDay(ctx, clinicianID, int(date.Weekday()))
	if err != nil {
		return nil, err
	}
	var intervals []Interval
	for _, w := range wins {
		intervals = append(intervals, Interval{Start: w.StartTime, End: w.EndTime})
	}
	sortIntervals(intervals)
	return intervals, nil
}

// IsWithinAvailability reports whether [start, end) lies fully inside a
// single contiguous resolved window for the clinician on that date.
func (s *Service) IsWithinAvailability(ctx context.Context, clinicianID uuid.UUID, date timegrid.Date, start, end timegrid.TimeOfDay) (bool, error) {
	intervals, err := s.ResolveDay(ctx, clinicianID, date)
	if err != nil {
		return false, err
	}
	for _, iv := range intervals {
		if iv.Contains(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func sortIntervals(ivs []Interval) {
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start < ivs[j].Start })
}
