// Package events carries scheduling domain events to external consumers. The
// engine never sends email or SMS itself; it publishes AppointmentConfirmed /
// AppointmentCancelled and an external notifier subscribes, either in-process
// through the Bus or over HTTP through the webhook dispatcher.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the scheduling engine.
const (
	TypeAppointmentCreated   = "appointment.created"
	TypeAppointmentConfirmed = "appointment.confirmed"
	TypeAppointmentCancelled = "appointment.cancelled"
)

// Event is a scheduling domain event.
type Event struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	ClinicianID   uuid.UUID `json:"clinician_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// New builds an event with a fresh ID and timestamp.
func New(eventType string, appointmentID, patientID, clinicianID uuid.UUID) Event {
	return Event{
		ID:            uuid.New(),
		Type:          eventType,
		AppointmentID: appointmentID,
		PatientID:     patientID,
		ClinicianID:   clinicianID,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher is how domain services emit events.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Handler consumes events from a Bus subscription.
type Handler func(ctx context.Context, e Event)

// Bus is a thread-safe in-process fan-out publisher. Handlers run
// synchronously in subscription order; a handler that must not block the
// booking path should hand off internally.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	all      []Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish delivers the event to matching handlers.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	matched := make([]Handler, 0, len(b.all)+len(b.handlers[e.Type]))
	matched = append(matched, b.all...)
	matched = append(matched, b.handlers[e.Type]...)
	b.mu.RUnlock()

	for _, h := range matched {
		h(ctx, e)
	}
}

// NopPublisher discards events; useful in tests and tooling.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
