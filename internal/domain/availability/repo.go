package availability

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/pkg/timegrid"
)

// WindowRepository persists recurring weekly windows.
type WindowRepository interface {
	Create(ctx context.Context, w *Window) error
	GetByID(ctx context.Context, id uuid.UUID) (*Window, error)
	Update(ctx context.Context, w *Window) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByClinician(ctx context.Context, clinicianID uuid.UUID) ([]*Window, error)
	ListByClinicianDay(ctx context.Context, clinicianID uuid.UUID, day int) ([]*Window, error)
}

// ExceptionRepository persists date-specific overrides.
type ExceptionRepository interface {
	Create(ctx context.Context, e *Exception) error
	GetByID(ctx context.Context, id uuid.UUID) (*Exception, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByClinicianDate(ctx context.Context, clinicianID uuid.UUID, date timegrid.Date) ([]*Exception, error)
	ListByClinicianRange(ctx context.Context, clinicianID uuid.UUID, from, to timegrid.Date) ([]*Exception, error)
}
