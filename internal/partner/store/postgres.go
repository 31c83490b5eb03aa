// Package store provides Partner persistence with Postgres and in-memory
// implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bdivp/internal/partner"
	"bdivp/pkg/platform/sentinel"
)

// Postgres persists partners in the partners table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const partnerColumns = `id, org_name, system_name, nid_username, nid_password,
	is_active, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, p partner.Partner) error {
	query := `
		INSERT INTO partners (` + partnerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.OrgName, p.SystemName, p.NIDUsernameEnc, p.NIDPasswordEnc,
		p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create partner: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (partner.Partner, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE id = $1`, id)

	var p partner.Partner
	err := row.Scan(&p.ID, &p.OrgName, &p.SystemName, &p.NIDUsernameEnc,
		&p.NIDPasswordEnc, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return partner.Partner{}, sentinel.ErrNotFound
	}
	if err != nil {
		return partner.Partner{}, fmt.Errorf("find partner: %w", err)
	}
	return p, nil
}

// ListActive returns active partners only; deactivated partners stay in the
// table for audit referential integrity but disappear from listings.
func (s *Postgres) ListActive(ctx context.Context) ([]partner.Partner, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE is_active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	defer rows.Close()

	var partners []partner.Partner
	for rows.Next() {
		var p partner.Partner
		if err := rows.Scan(&p.ID, &p.OrgName, &p.SystemName, &p.NIDUsernameEnc,
			&p.NIDPasswordEnc, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, p partner.Partner) error {
	query := `
		UPDATE partners
		SET org_name = $2, system_name = $3, nid_username = $4, nid_password = $5,
			is_active = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		p.ID, p.OrgName, p.SystemName, p.NIDUsernameEnc, p.NIDPasswordEnc,
		p.IsActive, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update partner: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update partner: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update partner: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM partners`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count partners: %w", err)
	}
	return n, nil
}
