package appointment

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/pkg/timegrid"
)

type fakeSource struct {
	day []*Appointment
}

func (f *fakeSource) ListActiveForDay(_ context.Context, _ uuid.UUID, _ timegrid.Date) ([]*Appointment, error) {
	sort.Slice(f.day, func(i, j int) bool { return f.day[i].StartTime < f.day[j].StartTime })
	return f.day, nil
}

func booking(start, end timegrid.TimeOfDay) *Appointment {
	return &Appointment{ID: uuid.New(), StartTime: start, EndTime: end, Status: StatusScheduled}
}

func TestFindConflictsHalfOpen(t *testing.T) {
	day := timegrid.Date{Year: 2026, Month: 3, Day: 2}
	clinician := uuid.New()
	existing := booking(10*60, 11*60) // 10:00-11:00

	d := NewDetector(&fakeSource{day: []*Appointment{existing}})

	cases := []struct {
		name       string
		start, end timegrid.TimeOfDay
		want       int
	}{
		{"identical", 10 * 60, 11 * 60, 1},
		{"contained", 10*60 + 15, 10*60 + 45, 1},
		{"overlaps head", 9*60 + 30, 10*60 + 30, 1},
		{"overlaps tail", 10*60 + 30, 11*60 + 30, 1},
		{"spans", 9 * 60, 12 * 60, 1},
		{"back-to-back before", 9 * 60, 10 * 60, 0},
		{"back-to-back after", 11 * 60, 12 * 60, 0},
		{"disjoint", 13 * 60, 14 * 60, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ids, err := d.FindConflicts(context.Background(), clinician, day, tc.start, tc.end, nil)
			if err != nil {
				t.Fatalf("FindConflicts: %v", err)
			}
			if len(ids) != tc.want {
				t.Errorf("got %d conflicts, want %d", len(ids), tc.want)
			}
		})
	}
}

func TestFindConflictsExcludeID(t *testing.T) {
	day := timegrid.Date{Year: 2026, Month: 3, Day: 2}
	mine := booking(10*60, 11*60)
	other := booking(10*60+30, 11*60+30)

	d := NewDetector(&fakeSource{day: []*Appointment{mine, other}})

	ids, err := d.FindConflicts(context.Background(), uuid.New(), day, mine.StartTime, mine.EndTime, &mine.ID)
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if len(ids) != 1 || ids[0] != other.ID {
		t.Errorf("got %v, want only %s", ids, other.ID)
	}
}

func TestFindConflictsContiguousRun(t *testing.T) {
	// Hourly bookings 08:00-16:00; a 10:30-13:30 candidate overlaps exactly
	// the 10:00, 11:00, 12:00, and 13:00 bookings.
	day := timegrid.Date{Year: 2026, Month: 3, Day: 2}
	var all []*Appointment
	for h := 8; h < 16; h++ {
		all = append(all, booking(timegrid.TimeOfDay(h*60), timegrid.TimeOfDay((h+1)*60)))
	}
	d := NewDetector(&fakeSource{day: all})

	ids, err := d.FindConflicts(context.Background(), uuid.New(), day, 10*60+30, 13*60+30, nil)
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if len(ids) != 4 {
		t.Fatalf("got %d conflicts, want 4", len(ids))
	}
	want := []uuid.UUID{all[2].ID, all[3].ID, all[4].ID, all[5].ID}
	for i, id := range ids {
		if id != want[i] {
			t.Errorf("conflict %d = %s, want %s", i, id, want[i])
		}
	}
}

func TestFindConflictsRejectsMidnightCrossing(t *testing.T) {
	d := NewDetector(&fakeSource{})
	_, err := d.FindConflicts(context.Background(), uuid.New(), timegrid.Date{Year: 2026, Month: 3, Day: 2},
		23*60, 25*60, nil)
	if !errors.Is(err, timegrid.ErrCrossesMidnight) {
		t.Errorf("got %v, want ErrCrossesMidnight", err)
	}
}

func TestCheckFoldsIntoConflictError(t *testing.T) {
	day := timegrid.Date{Year: 2026, Month: 3, Day: 2}
	clinician := uuid.New()
	existing := booking(10*60, 11*60)
	d := NewDetector(&fakeSource{day: []*Appointment{existing}})

	err := d.Check(context.Background(), clinician, day, 10*60, 11*60, nil)
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(ce.ConflictingIDs) != 1 || ce.ConflictingIDs[0] != existing.ID {
		t.Errorf("ConflictingIDs = %v, want [%s]", ce.ConflictingIDs, existing.ID)
	}
	if ce.ClinicianID != clinician || ce.Date != day {
		t.Error("ConflictError should carry the offending clinician and date")
	}

	if err := d.Check(context.Background(), clinician, day, 11*60, 12*60, nil); err != nil {
		t.Errorf("clear interval: %v", err)
	}
}
