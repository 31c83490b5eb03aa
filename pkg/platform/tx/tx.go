// Package tx runs multi-store write sequences in one database transaction.
// The transaction travels through context, so stores join it without changing
// their signatures and in-memory stores simply never look for it.
package tx

import (
	"context"
	"database/sql"
	"fmt"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present. Postgres stores
// call this to join a caller's transaction.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner begins transactions against one database and carries them to the
// stores invoked inside fn.
type Runner struct {
	db *sql.DB
}

func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db}
}

// InTx runs fn inside a transaction. Any error from fn rolls everything
// back; the writes of every store that joined via From become visible
// together or not at all.
func (r *Runner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Nop runs fn without any transaction, for services backed by in-memory
// stores.
type Nop struct{}

func (Nop) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
