// Package auth authenticates requests with bearer tokens. A token is only
// accepted when its signature verifies, it is still present in the token
// cache, and the user it names is still active. Revoking a token or
// deactivating a user therefore takes effect on the very next request.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"bdivp/internal/auth/store/tokencache"
	"bdivp/internal/jwttoken"
	"bdivp/internal/user"
	dErrors "bdivp/pkg/domain-errors"
	"bdivp/pkg/platform/httputil"
	"bdivp/pkg/platform/middleware/request"
	"bdivp/pkg/platform/sentinel"
)

// TokenValidator checks a raw bearer token and returns its claims.
type TokenValidator interface {
	Validate(tokenString string) (*jwttoken.Claims, error)
}

// TokenFinder looks a live token up in the token cache. Logical expiry is the
// store's concern; a revoked or expired token is simply not found.
type TokenFinder interface {
	Find(ctx context.Context, token string) (tokencache.Record, error)
}

// UserFinder resolves the current state of the user named by the token.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (user.PartnerUser, error)
}

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID      uuid.UUID
	PartnerID   uuid.UUID
	Email       string
	Role        user.Role
	Permissions []string
	Scopes      []string
	Token       string
}

type contextKeyPrincipal struct{}

// WithPrincipal attaches a principal to the context. Exposed for handler tests.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal{}, p)
}

// GetPrincipal retrieves the authenticated principal, reporting whether one
// is present.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal{}).(Principal)
	return p, ok
}

// RequireAuth rejects requests without a valid, unrevoked bearer token for an
// active user, and attaches the resulting Principal for downstream guards and
// handlers.
func RequireAuth(validator TokenValidator, tokens TokenFinder, users UserFinder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				message := "Invalid token"
				if errors.Is(err, jwttoken.ErrTokenExpired) {
					message = "Token expired"
				}
				logger.WarnContext(ctx, "unauthorized access - token rejected",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, message))
				return
			}

			// Signature alone is not enough: logout removes the row, so a
			// cache miss means the token was revoked (or aged out).
			if _, err := tokens.Find(ctx, token); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
					logger.WarnContext(ctx, "unauthorized access - token revoked",
						"user_id", claims.UserID,
						"request_id", request.GetRequestID(ctx),
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Token has been revoked"))
					return
				}
				logger.ErrorContext(ctx, "token cache lookup failed",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "Failed to validate token"))
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid token"))
				return
			}

			// Resolve the live user so deactivation and permission changes
			// apply immediately, not at token expiry.
			u, err := users.FindByID(ctx, userID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "User no longer exists"))
					return
				}
				logger.ErrorContext(ctx, "user lookup failed",
					"error", err,
					"user_id", claims.UserID,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "Failed to validate token"))
				return
			}
			if !u.IsActive {
				logger.WarnContext(ctx, "unauthorized access - user deactivated",
					"user_id", claims.UserID,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Account is deactivated"))
				return
			}

			p := Principal{
				UserID:      u.ID,
				PartnerID:   u.PartnerID,
				Email:       u.Email,
				Role:        u.Role,
				Permissions: u.Permissions,
				Scopes:      u.Scopes,
				Token:       token,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
		})
	}
}
