package slots

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/availability"
	"github.com/clinicore/clinicore/pkg/timegrid"
)

type stubResolver struct {
	days  map[timegrid.Date][]availability.Interval
	calls int
}

func (s *stubResolver) ResolveDay(_ context.Context, _ uuid.UUID, date timegrid.Date) ([]availability.Interval, error) {
	s.calls++
	return s.days[date], nil
}

type stubChecker struct {
	busy map[timegrid.Date][][2]timegrid.TimeOfDay
}

func (s *stubChecker) FindConflicts(_ context.Context, _ uuid.UUID, date timegrid.Date, start, end timegrid.TimeOfDay, _ *uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, b := range s.busy[date] {
		if start < b[1] && b[0] < end {
			ids = append(ids, uuid.New())
		}
	}
	return ids, nil
}

func mustTime(t *testing.T, s string) timegrid.TimeOfDay {
	t.Helper()
	v, err := timegrid.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func TestGenerateFullDayCount(t *testing.T) {
	day := timegrid.Date{Year: 2026, Month: 3, Day: 2}
	resolver := &stubResolver{days: map[timegrid.Date][]availability.Interval{
		day: {{Start: mustTime(t, "09:00"), End: mustTime(t, "17:00")}},
	}}
	gen := NewGenerator(resolver, &stubChecker{})

	got, err := gen.GenerateAll(context.Background(), Request{
		ClinicianID:        uuid.New(),
		From:               day,
		To:                 day,
		DurationMinutes:    30,
		GranularityMinutes: 30,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// 09:00-17:00 holds sixteen 30-minute slots, the last starting 16:30.
	if len(got) != 16 {
		t.Fatalf("got %d slots, want 16", len(got))
	}
	if got[0].Start != mustTime(t, "09:00") {
		t.Errorf("first slot starts %s, want 09:00", got[0].Start)
	}
	if last := got[len(got)-1]; last.Start != mustTime(t, "16:30") || last.End != mustTime(t, "17:00") {
		t.Errorf("last slot %s-%s, want 16:30-17:00", last.Start, last.End)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start <= got[i-1].Start {
			t.Fatalf("slots not in ascending order at %d", i)
		}
	}
}

func TestGenerateSkipsConflictingCandidates(t *testing.T) {
	day := timegrid.Date{Year: 2026, Month: 3, Day: 2}
	resolver := &stubResolver{days: map[timegrid.Date][]availability.Interval{
		day: {{Start: mustTime(t, "09:00"), End: mustTime(t, "12:00")}},
	}}
	checker := &stubChecker{busy: map[timegrid.Date][][2]timegrid.TimeOfDay{
		day: {{mustTime(t, "10:00"), mustTime(t, "11:00")}},
	}}
	gen := NewGenerator(resolver, checker)

	got, err := gen.GenerateAll(context.Background(), Request{
		ClinicianID:        uuid.New(),
		From:               day,
		To:                 day,
		DurationMinutes:    60,
		GranularityMinutes: 60,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// 10:00-11:00 is taken; 09:00 and 11:00 remain. Back-to-back with the
	// booking is not a conflict.
	if len(got) != 2 {
		t.Fatalf("got %d slots, want 2: %+v", len(got), got)
	}
	if got[0].Start != mustTime(t, "09:00") || got[1].Start != mustTime(t, "11:00") {
		t.Errorf("got starts %s, %s; want 09:00, 11:00", got[0].Start, got[1].Start)
	}
}

func TestGenerateRejectsCandidatePastWindowEnd(t *testing.T) {
	day := timegrid.Date{Year: 2026, Month: 3, Day: 2}
	resolver := &stubResolver{days: map[timegrid.Date][]availability.Interval{
		day: {{Start: mustTime(t, "09:00"), End: mustTime(t, "10:15")}},
	}}
	gen := NewGenerator(resolver, &stubChecker{})

	got, err := gen.GenerateAll(context.Background(), Request{
		ClinicianID:        uuid.New(),
		From:               day,
		To:                 day,
		DurationMinutes:    50,
		GranularityMinutes: 15,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// 09:00 and 09:15 fit; 09:30+50min would end 10:20, past the window.
	if len(got) != 2 {
		t.Fatalf("got %d slots, want 2: %+v", len(got), got)
	}
	if got[1].End != mustTime(t, "10:05") {
		t.Errorf("last slot ends %s, want 10:05", got[1].End)
	}
}

func TestGenerateSpansMultipleDaysLazily(t *testing.T) {
	d1 := timegrid.Date{Year: 2026, Month: 3, Day: 2}
	d2 := d1.AddDays(1)
	d3 := d1.AddDays(2)
	resolver := &stubResolver{days: map[timegrid.Date][]availability.Interval{
		d1: {{Start: mustTime(t, "09:00"), End: mustTime(t, "10:00")}},
		d3: {{Start: mustTime(t, "09:00"), End: mustTime(t, "10:00")}},
	}}
	gen := NewGenerator(resolver, &stubChecker{})

	it, err := gen.Generate(context.Background(), Request{
		ClinicianID:        uuid.New(),
		From:               d1,
		To:                 d3,
		DurationMinutes:    60,
		GranularityMinutes: 60,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	first, ok, err := it.Next(context.Background())
	if err != nil || !ok {
		t.Fatalf("first Next: ok=%v err=%v", ok, err)
	}
	if first.Date != d1 {
		t.Errorf("first slot on %s, want %s", first.Date, d1)
	}
	if resolver.calls != 1 {
		t.Errorf("resolver called %d times before first slot, want 1", resolver.calls)
	}

	second, ok, err := it.Next(context.Background())
	if err != nil || !ok {
		t.Fatalf("second Next: ok=%v err=%v", ok, err)
	}
	if second.Date != d3 {
		t.Errorf("second slot on %s, want %s (day %s has no availability)", second.Date, d3, d2)
	}

	if _, ok, _ := it.Next(context.Background()); ok {
		t.Error("expected iterator to be exhausted")
	}
}

func TestGenerateIsRestartable(t *testing.T) {
	day := timegrid.Date{Year: 2026, Month: 3, Day: 2}
	resolver := &stubResolver{days: map[timegrid.Date][]availability.Interval{
		day: {{Start: mustTime(t, "09:00"), End: mustTime(t, "11:00")}},
	}}
	gen := NewGenerator(resolver, &stubChecker{})
	req := Request{
		ClinicianID:        uuid.New(),
		From:               day,
		To:                 day,
		DurationMinutes:    30,
		GranularityMinutes: 30,
	}

	first, err := gen.GenerateAll(context.Background(), req)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := gen.GenerateAll(context.Background(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("slot %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestGenerateHonoursContextCancellation(t *testing.T) {
	day := timegrid.Date{Year: 2026, Month: 3, Day: 2}
	resolver := &stubResolver{days: map[timegrid.Date][]availability.Interval{
		day: {{Start: mustTime(t, "09:00"), End: mustTime(t, "17:00")}},
	}}
	gen := NewGenerator(resolver, &stubChecker{})

	ctx, cancel := context.WithCancel(context.Background())
	it, err := gen.Generate(ctx, Request{
		ClinicianID:        uuid.New(),
		From:               day,
		To:                 day.AddDays(30),
		DurationMinutes:    30,
		GranularityMinutes: 30,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, ok, err := it.Next(ctx); err != nil || !ok {
		t.Fatalf("first Next: ok=%v err=%v", ok, err)
	}
	cancel()
	if _, _, err := it.Next(ctx); err == nil {
		t.Error("expected error after cancellation")
	}
}

func TestGenerateValidatesRequest(t *testing.T) {
	gen := NewGenerator(&stubResolver{}, &stubChecker{})
	day := timegrid.Date{Year: 2026, Month: 3, Day: 2}

	cases := []struct {
		name string
		req  Request
	}{
		{"zero duration", Request{From: day, To: day, DurationMinutes: 0, GranularityMinutes: 15}},
		{"zero granularity", Request{From: day, To: day, DurationMinutes: 30, GranularityMinutes: 0}},
		{"inverted range", Request{From: day, To: day.AddDays(-1), DurationMinutes: 30, GranularityMinutes: 15}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := gen.Generate(context.Background(), tc.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRecommendTagsFirstSlotPerDay(t *testing.T) {
	d1 := timegrid.Date{Year: 2026, Month: 3, Day: 2}
	d2 := d1.AddDays(1)
	in := []Slot{
		{Date: d1, Start: mustTime(t, "09:00"), End: mustTime(t, "09:30")},
		{Date: d1, Start: mustTime(t, "09:30"), End: mustTime(t, "10:00")},
		{Date: d2, Start: mustTime(t, "11:00"), End: mustTime(t, "11:30")},
	}

	out := Recommend(in)
	if len(out) != 3 {
		t.Fatalf("got %d, want 3", len(out))
	}
	want := []bool{true, false, true}
	for i, r := range out {
		if r.Recommended != want[i] {
			t.Errorf("slot %d recommended=%v, want %v", i, r.Recommended, want[i])
		}
		if r.Slot != in[i] {
			t.Errorf("slot %d mutated by Recommend", i)
		}
	}
}
