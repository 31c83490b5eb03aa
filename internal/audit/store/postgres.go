// Package store persists audit entries. The Postgres implementation is
// append-only; the memory implementation backs unit tests and local runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bdivp/internal/audit"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, e audit.Entry) error {
	matched, err := json.Marshal(e.MatchedFields)
	if err != nil {
		return fmt.Errorf("marshal matched fields: %w", err)
	}
	used, err := json.Marshal(e.NIDFieldsUsed)
	if err != nil {
		return fmt.Errorf("marshal nid fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, partner_id, requester_id, requester_email, requester_role,
			ip_address, user_agent, endpoint, request_body, response_body,
			status_code, matched_fields, nid_fields_used, verified, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID, nullUUID(e.PartnerID), nullUUID(e.RequesterID), e.RequesterEmail, e.RequesterRole,
		e.IPAddress, e.UserAgent, e.Endpoint, nullJSON(e.RequestBody), nullJSON(e.ResponseBody),
		e.StatusCode, matched, used, e.Verified, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, q audit.Query) ([]audit.Entry, error) {
	where, args := buildWhere(q)
	q = q.Normalized()

	query := fmt.Sprintf(`
		SELECT id, partner_id, requester_id, requester_email, requester_role,
		       ip_address, user_agent, endpoint, request_body, response_body,
		       status_code, matched_fields, nid_fields_used, verified, created_at
		FROM audit_logs
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Postgres) Count(ctx context.Context, q audit.Query) (int, error) {
	where, args := buildWhere(q)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs "+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}

func buildWhere(q audit.Query) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if q.PartnerID != uuid.Nil {
		add("partner_id = $%d", q.PartnerID)
	}
	if q.Endpoint != "" {
		add("endpoint = $%d", q.Endpoint)
	}
	if q.Verified != nil {
		add("verified = $%d", *q.Verified)
	}
	if !q.From.IsZero() {
		add("created_at >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("created_at <= $%d", q.To)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func scanEntry(rows *sql.Rows) (audit.Entry, error) {
	var (
		e            audit.Entry
		partnerID    uuid.NullUUID
		requesterID  uuid.NullUUID
		reqBody      []byte
		respBody     []byte
		matched      []byte
		used         []byte
		createdAt    time.Time
		statusCode   int
	)
	err := rows.Scan(&e.ID, &partnerID, &requesterID, &e.RequesterEmail, &e.RequesterRole,
		&e.IPAddress, &e.UserAgent, &e.Endpoint, &reqBody, &respBody,
		&statusCode, &matched, &used, &e.Verified, &createdAt)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("scan audit entry: %w", err)
	}

	e.PartnerID = partnerID.UUID
	e.RequesterID = requesterID.UUID
	e.RequestBody = reqBody
	e.ResponseBody = respBody
	e.StatusCode = statusCode
	e.CreatedAt = createdAt
	if len(matched) > 0 {
		if err := json.Unmarshal(matched, &e.MatchedFields); err != nil {
			return audit.Entry{}, fmt.Errorf("unmarshal matched fields: %w", err)
		}
	}
	if len(used) > 0 {
		if err := json.Unmarshal(used, &e.NIDFieldsUsed); err != nil {
			return audit.Entry{}, fmt.Errorf("unmarshal nid fields: %w", err)
		}
	}
	return e, nil
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
