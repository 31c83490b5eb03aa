package tokencache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bdivp/pkg/platform/sentinel"
)

var findDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "bdivp_token_cache_find_duration_ms",
	Help:    "Latency of token cache lookups in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

// Postgres persists session tokens in the token_cache table.
type Postgres struct {
	db    *sql.DB
	clock Clock // injected clock for testability (defaults to time.Now)
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

// NewPostgres constructs a Postgres-backed token cache.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	s := &Postgres{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Put records an issued token. Re-putting the same token refreshes its row.
func (s *Postgres) Put(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO token_cache (token, user_id, partner_id, refresh_token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (token) DO UPDATE SET
			expires_at = EXCLUDED.expires_at
	`
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock()
	}
	_, err := s.db.ExecContext(ctx, query,
		rec.Token, rec.UserID, rec.PartnerID, nullString(rec.RefreshToken),
		rec.ExpiresAt, createdAt,
	)
	if err != nil {
		return fmt.Errorf("put token: %w", err)
	}
	return nil
}

// Find returns the live record for a token. A row whose expiry has passed is
// treated as not found even if it has not been purged yet.
func (s *Postgres) Find(ctx context.Context, token string) (Record, error) {
	start := time.Now()
	defer func() {
		findDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	row := s.db.QueryRowContext(ctx, `
		SELECT token, user_id, partner_id, COALESCE(refresh_token, ''), expires_at, created_at
		FROM token_cache WHERE token = $1`, token)

	var rec Record
	err := row.Scan(&rec.Token, &rec.UserID, &rec.PartnerID, &rec.RefreshToken,
		&rec.ExpiresAt, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("find token: %w", err)
	}
	if !s.clock().Before(rec.ExpiresAt) {
		return Record{}, sentinel.ErrNotFound
	}
	return rec, nil
}

// Revoke deletes a token's record. Revoking an absent token is not an error.
func (s *Postgres) Revoke(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM token_cache WHERE token = $1`, token); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// DeleteExpired purges rows past their expiry. Lazy cleanup; Find is correct
// without it.
func (s *Postgres) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM token_cache WHERE expires_at <= $1`, s.clock())
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of live cached tokens, for the admin overview.
func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM token_cache WHERE expires_at > $1`, s.clock()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
