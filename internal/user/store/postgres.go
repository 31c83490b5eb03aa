// Package store provides PartnerUser persistence. The Postgres store is the
// production implementation; the memory store backs unit tests and local runs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"bdivp/internal/user"
	"bdivp/pkg/platform/sentinel"
	"bdivp/pkg/platform/tx"
)

// Postgres persists partner users in the partner_users table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const userColumns = `id, partner_id, email, password_hash, first_name, last_name,
	role, permissions, scopes, is_active, last_login_at, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, u user.PartnerUser) error {
	query := `
		INSERT INTO partner_users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.PartnerID, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		string(u.Role), pq.Array(u.Permissions), pq.Array(u.Scopes),
		u.IsActive, nullTime(u.LastLoginAt), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("create user: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (user.PartnerUser, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM partner_users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (user.PartnerUser, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM partner_users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *Postgres) List(ctx context.Context) ([]user.PartnerUser, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM partner_users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user.PartnerUser
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, u user.PartnerUser) error {
	query := `
		UPDATE partner_users
		SET email = $2, password_hash = $3, first_name = $4, last_name = $5,
			role = $6, permissions = $7, scopes = $8, is_active = $9,
			last_login_at = $10, updated_at = $11
		WHERE id = $1
	`
	res, err := s.exec(ctx).ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		string(u.Role), pq.Array(u.Permissions), pq.Array(u.Scopes),
		u.IsActive, nullTime(u.LastLoginAt), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update user: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM partner_users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// exec joins a context-carried transaction when one is present, so that
// Update participates in the password-reset transaction.
func (s *Postgres) exec(ctx context.Context) executor {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (user.PartnerUser, error) {
	var (
		u         user.PartnerUser
		role      string
		perms     pq.StringArray
		scopes    pq.StringArray
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.PartnerID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&role, &perms, &scopes, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return user.PartnerUser{}, sentinel.ErrNotFound
	}
	if err != nil {
		return user.PartnerUser{}, fmt.Errorf("scan user: %w", err)
	}
	u.Role = user.Role(role)
	u.Permissions = perms
	u.Scopes = scopes
	if lastLogin.Valid {
		u.LastLoginAt = lastLogin.Time
	}
	return u, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
