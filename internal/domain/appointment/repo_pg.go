package appointment

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/pkg/timegrid"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const apptCols = `id, patient_id, clinician_id, date, start_time, end_time,
	appointment_type, format, location, status, cancellation_reason,
	rescheduled_from_id, created_at, updated_at`

func (r *repoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var start, end int
	err := row.Scan(&a.ID, &a.PatientID, &a.ClinicianID, &a.Date, &start, &end,
		&a.Type, &a.Format, &a.Location, &a.Status, &a.CancellationReason,
		&a.RescheduledFromID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.StartTime = timegrid.TimeOfDay(start)
	a.EndTime = timegrid.TimeOfDay(end)
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, patient_id, clinician_id, date, start_time, end_time,
			appointment_type, format, location, status, cancellation_reason, rescheduled_from_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.PatientID, a.ClinicianID, a.Date, int(a.StartTime), int(a.EndTime),
		a.Type, a.Format, a.Location, a.Status, a.CancellationReason, a.RescheduledFromID)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET status=$2, cancellation_reason=$3, format=$4, location=$5, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Status, a.CancellationReason, a.Format, a.Location)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE patient_id = $1 ORDER BY date DESC, start_time DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(rows)
	return items, total, err
}

func (r *repoPG) ListByClinician(ctx context.Context, clinicianID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE clinician_id = $1`, clinicianID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE clinician_id = $1 ORDER BY date DESC, start_time DESC LIMIT $2 OFFSET $3`,
		clinicianID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(rows)
	return items, total, err
}

func (r *repoPG) ListActiveForDay(ctx context.Context, clinicianID uuid.UUID, date timegrid.Date) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE clinician_id = $1 AND date = $2 AND status NOT IN ('cancelled', 'no-show')
		ORDER BY start_time ASC`, clinicianID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) ListForRange(ctx context.Context, clinicianID uuid.UUID, from, to timegrid.Date) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE clinician_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC, start_time ASC`, clinicianID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) collect(rows pgx.Rows) ([]*Appointment, error) {
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// pgTxRunner serializes writers on the same clinician day with a
// transaction-scoped advisory lock, making the conflict check and the write
// it guards atomic as a unit.
type pgTxRunner struct{ pool *pgxpool.Pool }

func NewTxRunnerPG(pool *pgxpool.Pool) TxRunner { return &pgTxRunner{pool: pool} }

func (t *pgTxRunner) InDay(ctx context.Context, clinicianID uuid.UUID, date timegrid.Date, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, t.pool, func(ctx context.Context) error {
		if err := db.AdvisoryLock(ctx, db.QuerierFromContext(ctx), hash32(clinicianID.String()), hash32(date.String())); err != nil {
			return err
		}
		return fn(ctx)
	})
}

func hash32(s string) int32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int32(h.Sum32())
}
