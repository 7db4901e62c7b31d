package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/pkg/timegrid"
)

// =========== Window Repository ===========

type windowRepoPG struct{ pool *pgxpool.Pool }

func NewWindowRepoPG(pool *pgxpool.Pool) WindowRepository { return &windowRepoPG{pool: pool} }

func (r *windowRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const windowCols = `id, clinician_id, day_of_week, start_time, end_time, created_at, updated_at`

func (r *windowRepoPG) scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	var day, start, end int
	err := row.Scan(&w.ID, &w.ClinicianID, &day, &start, &end, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.DayOfWeek = time.Weekday(day)
	w.StartTime = timegrid.TimeOfDay(start)
	w.EndTime = timegrid.TimeOfDay(end)
	return &w, nil
}

func (r *windowRepoPG) Create(ctx context.Context, w *Window) error {
	w.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO availability_window (id, clinician_id, day_of_week, start_time, end_time)
		VALUES ($1,$2,$3,$4,$5)`,
		w.ID, w.ClinicianID, int(w.DayOfWeek), int(w.StartTime), int(w.EndTime))
	return err
}

func (r *windowRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Window, error) {
	return r.scanWindow(r.conn(ctx).QueryRow(ctx, `SELECT `+windowCols+` FROM availability_window WHERE id = $1`, id))
}

func (r *windowRepoPG) Update(ctx context.Context, w *Window) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE availability_window SET day_of_week=$2, start_time=$3, end_time=$4, updated_at=NOW()
		WHERE id = $1`,
		w.ID, int(w.DayOfWeek), int(w.StartTime), int(w.EndTime))
	return err
}

func (r *windowRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM availability_window WHERE id = $1`, id)
	return err
}

func (r *windowRepoPG) ListByClinician(ctx context.Context, clinicianID uuid.UUID) ([]*Window, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+windowCols+` FROM availability_window
		WHERE clinician_id = $1 ORDER BY day_of_week ASC, start_time ASC`, clinicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *windowRepoPG) ListByClinicianDay(ctx context.Context, clinicianID uuid.UUID, day int) ([]*Window, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+windowCols+` FROM availability_window
		WHERE clinician_id = $1 AND day_of_week = $2 ORDER BY start_time ASC`, clinicianID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *windowRepoPG) collect(rows pgx.Rows) ([]*Window, error) {
	var items []*Window
	for rows.Next() {
		w, err := r.scanWindow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

// =========== Exception Repository ===========

type exceptionRepoPG struct{ pool *pgxpool.Pool }

func NewExceptionRepoPG(pool *pgxpool.Pool) ExceptionRepository { return &exceptionRepoPG{pool: pool} }

func (r *exceptionRepoPG) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const exceptionCols = `id, clinician_id, date, blocked, start_time, end_time, reason, created_at, updated_at`

func (r *exceptionRepoPG) scanException(row pgx.Row) (*Exception, error) {
	var e Exception
	var start, end *int
	err := row.Scan(&e.ID, &e.ClinicianID, &e.Date, &e.Blocked, &start, &end, &e.Reason, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if start != nil {
		t := timegrid.TimeOfDay(*start)
		e.StartTime = &t
	}
	if end != nil {
		t := timegrid.TimeOfDay(*end)
		e.EndTime = &t
	}
	return &e, nil
}

func (r *exceptionRepoPG) Create(ctx context.Context, e *Exception) error {
	e.ID = uuid.New()
	var start, end *int
	if e.StartTime != nil {
		v := int(*e.StartTime)
		start = &v
	}
	if e.EndTime != nil {
		v := int(*e.EndTime)
		end = &v
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO availability_exception (id, clinician_id, date, blocked, start_time, end_time, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.ClinicianID, e.Date, e.Blocked, start, end, e.Reason)
	return err
}

func (r *exceptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Exception, error) {
	return r.scanException(r.conn(ctx).QueryRow(ctx, `SELECT `+exceptionCols+` FROM availability_exception WHERE id = $1`, id))
}

func (r *exceptionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM availability_exception WHERE id = $1`, id)
	return err
}

func (r *exceptionRepoPG) ListByClinicianDate(ctx context.Context, clinicianID uuid.UUID, date timegrid.Date) ([]*Exception, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+exceptionCols+` FROM availability_exception
		WHERE clinician_id = $1 AND date = $2 ORDER BY start_time ASC NULLS FIRST`, clinicianID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *exceptionRepoPG) ListByClinicianRange(ctx context.Context, clinicianID uuid.UUID, from, to timegrid.Date) ([]*Exception, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+exceptionCols+` FROM availability_exception
		WHERE clinician_id = $1 AND date >= $2 AND date <= $3 ORDER BY date ASC, start_time ASC NULLS FIRST`,
		clinicianID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *exceptionRepoPG) collect(rows pgx.Rows) ([]*Exception, error) {
	var items []*Exception
	for rows.Next() {
		e, err := r.scanException(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
