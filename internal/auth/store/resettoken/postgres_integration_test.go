//go:build integration

package resettoken_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"bdivp/internal/auth/store/resettoken"
	"bdivp/pkg/platform/sentinel"
	"bdivp/pkg/platform/tx"
	"bdivp/pkg/testutil/containers"
)

type PostgresResetTokenSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	now      time.Time
	store    *resettoken.Postgres
}

func TestPostgresResetTokenSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresResetTokenSuite))
}

func (s *PostgresResetTokenSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
}

func (s *PostgresResetTokenSuite) SetupTest() {
	s.now = time.Now()
	s.store = resettoken.NewPostgres(s.postgres.DB,
		resettoken.WithClock(func() time.Time { return s.now }))
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "password_reset_tokens"))
}

func (s *PostgresResetTokenSuite) issue(userID uuid.UUID, token string) {
	s.T().Helper()
	s.Require().NoError(s.store.Create(context.Background(), resettoken.Record{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: s.now.Add(time.Hour),
	}))
}

func (s *PostgresResetTokenSuite) TestConsumeIsSingleUse() {
	ctx := context.Background()
	userID := uuid.New()
	s.issue(userID, "reset-once")

	s.Require().NoError(s.store.Consume(ctx, userID, "reset-once"))
	s.ErrorIs(s.store.Consume(ctx, userID, "reset-once"), sentinel.ErrAlreadyUsed)

	s.ErrorIs(s.store.Consume(ctx, userID, "never-issued"), sentinel.ErrNotFound)
	s.ErrorIs(s.store.Consume(ctx, uuid.New(), "reset-once"), sentinel.ErrNotFound)
}

func (s *PostgresResetTokenSuite) TestConsumeExpired() {
	ctx := context.Background()
	userID := uuid.New()
	s.issue(userID, "reset-stale")

	s.now = s.now.Add(2 * time.Hour)
	s.ErrorIs(s.store.Consume(ctx, userID, "reset-stale"), sentinel.ErrNotFound)
}

func (s *PostgresResetTokenSuite) TestConsumeRollsBackWithCaller() {
	ctx := context.Background()
	userID := uuid.New()
	s.issue(userID, "reset-txn")

	// Consume inside a caller-owned transaction that never commits.
	sqlTx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Consume(tx.WithTx(ctx, sqlTx), userID, "reset-txn"))
	s.Require().NoError(sqlTx.Rollback())

	// The rollback restores the token, so a retry still succeeds.
	s.NoError(s.store.Consume(ctx, userID, "reset-txn"))
	s.ErrorIs(s.store.Consume(ctx, userID, "reset-txn"), sentinel.ErrAlreadyUsed)
}

func (s *PostgresResetTokenSuite) TestRunnerCommits() {
	ctx := context.Background()
	userID := uuid.New()
	s.issue(userID, "reset-committed")

	runner := tx.NewRunner(s.postgres.DB)
	err := runner.InTx(ctx, func(ctx context.Context) error {
		return s.store.Consume(ctx, userID, "reset-committed")
	})
	s.Require().NoError(err)
	s.ErrorIs(s.store.Consume(ctx, userID, "reset-committed"), sentinel.ErrAlreadyUsed)
}
