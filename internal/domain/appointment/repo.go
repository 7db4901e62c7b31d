package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/pkg/timegrid"
)

// Repository persists appointments. There is deliberately no Delete:
// cancellation is a terminal status, not row removal.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByClinician(ctx context.Context, clinicianID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	// ListActiveForDay returns slot-holding appointments (everything except
	// cancelled and no-show) for one clinician day, ordered by start time.
	ListActiveForDay(ctx context.Context, clinicianID uuid.UUID, date timegrid.Date) ([]*Appointment, error)
	// ListForRange returns all appointments for a clinician's date range,
	// terminal or not, for calendar projection.
	ListForRange(ctx context.Context, clinicianID uuid.UUID, from, to timegrid.Date) ([]*Appointment, error)
}

// TxRunner serializes a unit of work against one clinician's calendar day.
// Everything inside fn — conflict checks and the writes they guard — commits
// or fails atomically, so two concurrent callers can never both pass a
// conflict check against a stale snapshot.
type TxRunner interface {
	InDay(ctx context.Context, clinicianID uuid.UUID, date timegrid.Date, fn func(ctx context.Context) error) error
}
