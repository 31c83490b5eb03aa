// Package resettoken stores single-use password recovery tokens. Consumption
// is a single atomic update so a token can never authorize two resets, even
// under concurrent attempts.
package resettoken

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bdivp/pkg/platform/sentinel"
	"bdivp/pkg/platform/tx"
)

// Record is one issued reset token. Used flips true exactly once.
type Record struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Clock abstracts time.Now for logical-expiry tests.
type Clock func() time.Time

// Postgres persists reset tokens in the password_reset_tokens table.
type Postgres struct {
	db    *sql.DB
	clock Clock
}

// PostgresOption configures a Postgres store instance.
type PostgresOption func(*Postgres)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) PostgresOption {
	return func(s *Postgres) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	s := &Postgres{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Postgres) Create(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO password_reset_tokens (id, user_id, token, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock()
	}
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.Token, rec.ExpiresAt, rec.Used, createdAt)
	if err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}
	return nil
}

// Consume atomically marks a matching, unused, unexpired token as used.
// Returns sentinel.ErrAlreadyUsed for a consumed token and
// sentinel.ErrNotFound for absent or expired ones. Joins a context
// transaction when the caller started one.
func (s *Postgres) Consume(ctx context.Context, userID uuid.UUID, token string) error {
	query := `
		UPDATE password_reset_tokens
		SET used = TRUE
		WHERE user_id = $1 AND token = $2 AND NOT used AND expires_at > $3
	`
	res, err := s.exec(ctx).ExecContext(ctx, query, userID, token, s.clock())
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if affected == 0 {
		var used bool
		err := s.exec(ctx).QueryRowContext(ctx,
			`SELECT used FROM password_reset_tokens WHERE user_id = $1 AND token = $2`,
			userID, token).Scan(&used)
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("consume reset token: %w", err)
		}
		if used {
			return sentinel.ErrAlreadyUsed
		}
		return sentinel.ErrNotFound
	}
	return nil
}

// executor is satisfied by *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) exec(ctx context.Context) executor {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

// CountIssued reports outstanding tokens for a user; used by tests and the
// forgot-password enumeration check.
func (s *Postgres) CountIssued(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM password_reset_tokens WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count reset tokens: %w", err)
	}
	return n, nil
}
