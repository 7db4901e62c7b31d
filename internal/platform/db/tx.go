package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "db_tx"

// Querier is the subset of pgx shared by pools, connections, and
// transactions. Repositories run against whichever the context supplies.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// QuerierFromContext returns the transaction bound to ctx by WithTx, or nil
// when the caller is outside a transaction.
func QuerierFromContext(ctx context.Context) Querier {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	if tx == nil {
		return nil
	}
	return tx
}

// WithTx runs fn inside a single transaction. The transaction is stashed in
// the context so every repository call inside fn shares it; this is what makes
// a conflict check and the write it guards atomic as a unit. The transaction
// is rolled back if fn returns an error or panics. Nested calls join the
// transaction already on the context instead of opening a second one.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if existing, _ := ctx.Value(txKey).(pgx.Tx); existing != nil {
		return fn(ctx)
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AdvisoryLock takes a transaction-scoped advisory lock on the given key pair,
// serializing concurrent writers for the same (clinician, date) calendar day.
// Released automatically at commit or rollback.
func AdvisoryLock(ctx context.Context, q Querier, classID int32, key int32) error {
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, classID, key); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	return nil
}
