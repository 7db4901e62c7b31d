// Package slots enumerates candidate bookable intervals for a clinician. A
// slot is ephemeral: it is derived from resolved availability and the stored
// appointments at call time, handed to the caller, and discarded. Nothing
// here writes state, so an iteration can be abandoned or re-run freely.
package slots

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/availability"
	"github.com/clinicore/clinicore/pkg/timegrid"
)

var (
	ErrInvalidDuration    = errors.New("duration must be a positive number of minutes")
	ErrInvalidGranularity = errors.New("granularity must be a positive number of minutes")
	ErrInvalidRange       = errors.New("date range end precedes start")
)

// Slot is a candidate bookable interval. It is never persisted.
type Slot struct {
	ClinicianID uuid.UUID          `json:"clinician_id"`
	Date        timegrid.Date      `json:"date"`
	Start       timegrid.TimeOfDay `json:"start"`
	End         timegrid.TimeOfDay `json:"end"`
}

// AvailabilityResolver yields the bookable intervals for one clinician day.
type AvailabilityResolver interface {
	ResolveDay(ctx context.Context, clinicianID uuid.UUID, date timegrid.Date) ([]availability.Interval, error)
}

// ConflictChecker reports appointments overlapping a candidate interval.
type ConflictChecker interface {
	FindConflicts(ctx context.Context, clinicianID uuid.UUID, date timegrid.Date, start, end timegrid.TimeOfDay, excludeID *uuid.UUID) ([]uuid.UUID, error)
}

// Request describes one slot enumeration.
type Request struct {
	ClinicianID        uuid.UUID
	From, To           timegrid.Date
	DurationMinutes    int
	GranularityMinutes int
}

func (r Request) validate() error {
	if r.DurationMinutes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDuration, r.DurationMinutes)
	}
	if r.GranularityMinutes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidGranularity, r.GranularityMinutes)
	}
	if r.To.Before(r.From) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidRange, r.From, r.To)
	}
	return nil
}

type Generator struct {
	resolver AvailabilityResolver
	conflict ConflictChecker
}

func NewGenerator(resolver AvailabilityResolver, conflict ConflictChecker) *Generator {
	return &Generator{resolver: resolver, conflict: conflict}
}

// Generate returns a lazy iterator over the bookable slots matching req.
// Re-invoking with the same inputs against unchanged data yields the same
// sequence; the iterator carries no state beyond its cursor.
func (g *Generator) Generate(ctx context.Context, req Request) (*Iterator, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	return &Iterator{
		gen:  g,
		req:  req,
		date: req.From,
	}, nil
}

// GenerateAll drains the iterator; convenience for handlers and tests that
// want the full finite sequence.
func (g *Generator) GenerateAll(ctx context.Context, req Request) ([]Slot, error) {
	it, err := g.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	var out []Slot
	for {
		s, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, s)
	}
}

// Iterator walks candidate start times in ascending chronological order.
// Availability for a date is resolved only when the cursor reaches it, so a
// caller that stops after the first slot never touches the rest of the range.
type Iterator struct {
	gen *Generator
	req Request

	date      timegrid.Date
	intervals []availability.Interval
	resolved  bool
	ivIdx     int
	cursor    timegrid.TimeOfDay
}

// Next yields the next bookable slot, or ok=false when the range is
// exhausted.
func (it *Iterator) Next(ctx context.Context) (Slot, bool, error) {
	for !it.date.After(it.req.To) {
		if err := ctx.Err(); err != nil {
			return Slot{}, false, err
		}
		if !it.resolved {
			ivs, err := it.gen.resolver.ResolveDay(ctx, it.req.ClinicianID, it.date)
			if err != nil {
				return Slot{}, false, fmt.Errorf("resolve availability for %s: %w", it.date, err)
			}
			it.intervals = ivs
			it.resolved = true
			it.ivIdx = 0
			if len(ivs) > 0 {
				it.cursor = ivs[0].Start
			}
		}

		for it.ivIdx < len(it.intervals) {
			iv := it.intervals[it.ivIdx]
			end := it.cursor.Add(it.req.DurationMinutes)
			if end > iv.End {
				it.ivIdx++
				if it.ivIdx < len(it.intervals) {
					it.cursor = it.intervals[it.ivIdx].Start
				}
				continue
			}

			start := it.cursor
			it.cursor = it.cursor.Add(it.req.GranularityMinutes)

			conflicts, err := it.gen.conflict.FindConflicts(ctx, it.req.ClinicianID, it.date, start, end, nil)
			if err != nil {
				return Slot{}, false, fmt.Errorf("conflict check %s %s: %w", it.date, start, err)
			}
			if len(conflicts) > 0 {
				continue
			}
			return Slot{
				ClinicianID: it.req.ClinicianID,
				Date:        it.date,
				Start:       start,
				End:         end,
			}, true, nil
		}

		it.date = it.date.AddDays(1)
		it.resolved = false
	}
	return Slot{}, false, nil
}

// First returns the earliest bookable slot in the range, or ok=false.
func (g *Generator) First(ctx context.Context, req Request) (Slot, bool, error) {
	it, err := g.Generate(ctx, req)
	if err != nil {
		return Slot{}, false, err
	}
	return it.Next(ctx)
}
