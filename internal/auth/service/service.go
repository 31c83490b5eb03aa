// Package service implements login, logout, profile and the password reset
// flow. Every authentication attempt leaves exactly one audit entry,
// recorded via defer so thrown errors cannot skip it.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"bdivp/internal/audit"
	"bdivp/internal/auth/store/resettoken"
	"bdivp/internal/auth/store/tokencache"
	"bdivp/internal/partner"
	"bdivp/internal/platform/secrets"
	"bdivp/internal/user"
	dErrors "bdivp/pkg/domain-errors"
	"bdivp/pkg/platform/middleware/request"
	"bdivp/pkg/platform/sentinel"
)

const resetTokenTTL = time.Hour

type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (user.PartnerUser, error)
	FindByEmail(ctx context.Context, email string) (user.PartnerUser, error)
	Update(ctx context.Context, u user.PartnerUser) error
}

type PartnerStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (partner.Partner, error)
}

type TokenStore interface {
	Put(ctx context.Context, rec tokencache.Record) error
	Revoke(ctx context.Context, token string) error
}

type ResetTokenStore interface {
	Create(ctx context.Context, rec resettoken.Record) error
	Consume(ctx context.Context, userID uuid.UUID, token string) error
}

type TokenIssuer interface {
	Generate(u user.PartnerUser, now time.Time) (string, time.Time, error)
}

// TxRunner runs fn atomically. ResetPassword uses it so consuming the token
// and writing the new password hash commit or roll back together.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Mailer delivers the reset mail. Failures are tolerated; the reset link is
// then logged for operator handover instead.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, resetLink string) error
}

type Service struct {
	users       UserStore
	partners    PartnerStore
	tokens      TokenStore
	resets      ResetTokenStore
	issuer      TokenIssuer
	mailer      Mailer
	txr         TxRunner
	recorder    *audit.Recorder
	logger      *slog.Logger
	frontendURL string
}

func New(
	users UserStore,
	partners PartnerStore,
	tokens TokenStore,
	resets ResetTokenStore,
	issuer TokenIssuer,
	mailer Mailer,
	txr TxRunner,
	recorder *audit.Recorder,
	logger *slog.Logger,
	frontendURL string,
) *Service {
	return &Service{
		users:       users,
		partners:    partners,
		tokens:      tokens,
		resets:      resets,
		issuer:      issuer,
		mailer:      mailer,
		txr:         txr,
		recorder:    recorder,
		logger:      logger,
		frontendURL: frontendURL,
	}
}

// LoginResult is the login response payload.
type LoginResult struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

// Profile is the principal's own view of their account, with the owning
// partner summarized alongside.
type Profile struct {
	user.Sanitized
	Partner *partner.Summary `json:"partner"`
}

// Login authenticates an email/password pair. Unknown users, deactivated
// users and wrong passwords all return the same generic unauthorized error;
// only the audit trail records which it was.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var (
		u       user.PartnerUser
		found   bool
		success bool
		reason  string
	)
	defer func() {
		entry := audit.Entry{
			Endpoint:      "/api/auth/login",
			IPAddress:     request.GetClientIP(ctx),
			UserAgent:     request.GetUserAgent(ctx),
			RequestBody:   emailSnapshot(email),
			ResponseBody:  messageSnapshot(reason),
			StatusCode:    http.StatusUnauthorized,
			MatchedFields: []string{"email"},
			Verified:      success,
		}
		if success {
			entry.StatusCode = http.StatusOK
		}
		if found {
			entry.PartnerID = u.PartnerID
			entry.RequesterID = u.ID
			entry.RequesterEmail = u.Email
			entry.RequesterRole = string(u.Role)
		}
		s.recorder.Record(ctx, entry)
	}()

	if email == "" || password == "" {
		reason = "Missing email or password"
		return LoginResult{}, dErrors.New(dErrors.CodeInvalidInput, reason)
	}

	var err error
	u, err = s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			reason = "User not found"
			return LoginResult{}, dErrors.New(dErrors.CodeUnauthorized, "Invalid credentials")
		}
		reason = "Storage failure"
		return LoginResult{}, fmt.Errorf("find user by email: %w", err)
	}
	found = true

	if !u.IsActive {
		reason = "User deactivated"
		return LoginResult{}, dErrors.New(dErrors.CodeUnauthorized, "Invalid credentials")
	}
	if err := u.VerifyPassword(password); err != nil {
		reason = "Invalid password"
		return LoginResult{}, dErrors.New(dErrors.CodeUnauthorized, "Invalid credentials")
	}

	now := time.Now()
	token, expiresAt, err := s.issuer.Generate(u, now)
	if err != nil {
		reason = "Token generation failure"
		return LoginResult{}, fmt.Errorf("generate token: %w", err)
	}
	if err := s.tokens.Put(ctx, tokencache.Record{
		Token:     token,
		UserID:    u.ID,
		PartnerID: u.PartnerID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}); err != nil {
		reason = "Token cache failure"
		return LoginResult{}, fmt.Errorf("cache token: %w", err)
	}

	u.LastLoginAt = now
	if err := s.users.Update(ctx, u); err != nil {
		// Last-login is advisory; the session is already valid.
		s.logger.WarnContext(ctx, "failed to record last login",
			"error", err,
			"user_id", u.ID,
		)
	}

	success = true
	reason = "Login successful"
	return LoginResult{Token: token, User: s.profile(ctx, u)}, nil
}

// Me returns the authenticated user's profile.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (Profile, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Profile{}, dErrors.New(dErrors.CodeNotFound, "User not found")
		}
		return Profile{}, fmt.Errorf("find user: %w", err)
	}
	return s.profile(ctx, u), nil
}

// Logout revokes the session token. Revoking an already-revoked token is
// fine; the second logout is a no-op.
func (s *Service) Logout(ctx context.Context, p LogoutPrincipal) error {
	if err := s.tokens.Revoke(ctx, p.Token); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.recorder.Record(ctx, audit.Entry{
		PartnerID:      p.PartnerID,
		RequesterID:    p.UserID,
		RequesterEmail: p.Email,
		RequesterRole:  p.Role,
		IPAddress:      request.GetClientIP(ctx),
		UserAgent:      request.GetUserAgent(ctx),
		Endpoint:       "/api/auth/logout",
		ResponseBody:   messageSnapshot("Logout successful"),
		StatusCode:     http.StatusOK,
		MatchedFields:  []string{},
		Verified:       true,
	})
	return nil
}

// LogoutPrincipal carries the identity fields Logout audits.
type LogoutPrincipal struct {
	UserID    uuid.UUID
	PartnerID uuid.UUID
	Email     string
	Role      string
	Token     string
}

// ForgotPassword issues a reset token and mails the reset link. The response
// is identical whether or not the email exists, so the endpoint cannot be
// used to enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	var (
		u       user.PartnerUser
		found   bool
		success bool
		reason  string
	)
	defer func() {
		entry := audit.Entry{
			Endpoint:      "/api/auth/forgot-password",
			IPAddress:     request.GetClientIP(ctx),
			UserAgent:     request.GetUserAgent(ctx),
			RequestBody:   emailSnapshot(email),
			ResponseBody:  messageSnapshot(reason),
			StatusCode:    http.StatusBadRequest,
			MatchedFields: []string{"email"},
			Verified:      success,
		}
		if success {
			entry.StatusCode = http.StatusOK
		}
		if found {
			entry.PartnerID = u.PartnerID
			entry.RequesterID = u.ID
			entry.RequesterEmail = u.Email
			entry.RequesterRole = string(u.Role)
		}
		s.recorder.Record(ctx, entry)
	}()

	if email == "" {
		reason = "Missing email"
		return dErrors.New(dErrors.CodeInvalidInput, reason)
	}

	var err error
	u, err = s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Same success message, no token issued.
			reason = "User not found"
			return nil
		}
		reason = "Storage failure"
		return fmt.Errorf("find user by email: %w", err)
	}
	found = true

	token, err := secrets.GenerateToken()
	if err != nil {
		reason = "Token generation failure"
		return fmt.Errorf("generate reset token: %w", err)
	}
	now := time.Now()
	if err := s.resets.Create(ctx, resettoken.Record{
		ID:        uuid.New(),
		UserID:    u.ID,
		Token:     token,
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	}); err != nil {
		reason = "Storage failure"
		return fmt.Errorf("store reset token: %w", err)
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s&email=%s", s.frontendURL, token, email)
	if err := s.mailer.SendPasswordReset(ctx, email, resetLink); err != nil {
		s.logger.ErrorContext(ctx, "failed to send reset email",
			"error", err,
			"email", email,
		)
		s.logger.InfoContext(ctx, "password reset link", "email", email, "link", resetLink)
	}

	success = true
	reason = "Password reset link sent"
	return nil
}

// ResetPassword consumes a token and replaces the user's password. A token
// works exactly once; expired, used or foreign tokens all fail the same way.
func (s *Service) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	var (
		u       user.PartnerUser
		found   bool
		success bool
		reason  string
	)
	defer func() {
		entry := audit.Entry{
			Endpoint:      "/api/auth/reset-password",
			IPAddress:     request.GetClientIP(ctx),
			UserAgent:     request.GetUserAgent(ctx),
			RequestBody:   emailSnapshot(email),
			ResponseBody:  messageSnapshot(reason),
			StatusCode:    http.StatusBadRequest,
			MatchedFields: []string{"email"},
			Verified:      success,
		}
		if success {
			entry.StatusCode = http.StatusOK
		}
		if found {
			entry.PartnerID = u.PartnerID
			entry.RequesterID = u.ID
			entry.RequesterEmail = u.Email
			entry.RequesterRole = string(u.Role)
		}
		s.recorder.Record(ctx, entry)
	}()

	if email == "" || token == "" || newPassword == "" {
		reason = "Missing required fields"
		return dErrors.New(dErrors.CodeInvalidInput, reason)
	}

	var err error
	u, err = s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			reason = "User not found"
			return dErrors.New(dErrors.CodeInvalidInput, "Invalid or expired token")
		}
		reason = "Storage failure"
		return fmt.Errorf("find user by email: %w", err)
	}
	found = true

	if err := u.SetPassword(newPassword); err != nil {
		reason = "Hashing failure"
		return fmt.Errorf("hash new password: %w", err)
	}
	u.UpdatedAt = time.Now()

	// Consuming the token and writing the new hash commit together; a failure
	// on either side leaves the token usable for a retry.
	err = s.txr.InTx(ctx, func(ctx context.Context) error {
		if err := s.resets.Consume(ctx, u.ID, token); err != nil {
			return fmt.Errorf("consume reset token: %w", err)
		}
		if err := s.users.Update(ctx, u); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrAlreadyUsed) {
			reason = "Invalid or expired token"
			return dErrors.New(dErrors.CodeInvalidInput, reason)
		}
		reason = "Storage failure"
		return err
	}

	success = true
	reason = "Password reset successful"
	return nil
}

func (s *Service) profile(ctx context.Context, u user.PartnerUser) Profile {
	p := Profile{Sanitized: u.Sanitize()}
	pt, err := s.partners.FindByID(ctx, u.PartnerID)
	if err != nil {
		// A missing partner row leaves the summary null, like a user with no
		// associated partner.
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to load partner for profile",
				"error", err,
				"partner_id", u.PartnerID,
			)
		}
		return p
	}
	summary := pt.Summarize()
	p.Partner = &summary
	return p
}

func emailSnapshot(email string) json.RawMessage {
	snapshot, _ := json.Marshal(map[string]string{"email": email})
	return snapshot
}

func messageSnapshot(message string) json.RawMessage {
	snapshot, _ := json.Marshal(map[string]string{"message": message})
	return snapshot
}
