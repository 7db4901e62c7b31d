package events

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestBusSubscribeByType(t *testing.T) {
	bus := NewBus()

	var confirmed, cancelled int
	bus.Subscribe(TypeAppointmentConfirmed, func(context.Context, Event) { confirmed++ })
	bus.Subscribe(TypeAppointmentCancelled, func(context.Context, Event) { cancelled++ })

	bus.Publish(context.Background(), New(TypeAppointmentConfirmed, uuid.New(), uuid.New(), uuid.New()))
	bus.Publish(context.Background(), New(TypeAppointmentConfirmed, uuid.New(), uuid.New(), uuid.New()))
	bus.Publish(context.Background(), New(TypeAppointmentCancelled, uuid.New(), uuid.New(), uuid.New()))

	if confirmed != 2 {
		t.Errorf("confirmed handler ran %d times, want 2", confirmed)
	}
	if cancelled != 1 {
		t.Errorf("cancelled handler ran %d times, want 1", cancelled)
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.SubscribeAll(func(_ context.Context, e Event) { got = append(got, e.Type) })

	bus.Publish(context.Background(), New(TypeAppointmentCreated, uuid.New(), uuid.New(), uuid.New()))
	bus.Publish(context.Background(), New(TypeAppointmentCancelled, uuid.New(), uuid.New(), uuid.New()))

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0] != TypeAppointmentCreated || got[1] != TypeAppointmentCancelled {
		t.Errorf("got event types %v", got)
	}
}

func TestNewEventFields(t *testing.T) {
	apptID, patientID, clinicianID := uuid.New(), uuid.New(), uuid.New()
	e := New(TypeAppointmentCreated, apptID, patientID, clinicianID)

	if e.ID == uuid.Nil {
		t.Error("expected non-nil event ID")
	}
	if e.AppointmentID != apptID || e.PatientID != patientID || e.ClinicianID != clinicianID {
		t.Error("event did not carry the supplied IDs")
	}
	if e.OccurredAt.IsZero() {
		t.Error("expected OccurredAt to be set")
	}
}
