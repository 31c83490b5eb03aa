// Package ratelimit caps how many verification requests each user may make
// per window. The window follows the user id, not the IP, so a partner's
// traffic from several machines still shares one budget.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bdivp/internal/ratelimit/store"
	dErrors "bdivp/pkg/domain-errors"
	"bdivp/pkg/platform/httputil"
	"bdivp/pkg/platform/middleware/auth"
)

// Store is the sliding-window counter behind the middleware. Concrete stores
// also offer Reset for operator tooling; the middleware never resets anyone.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (store.Result, error)
}

type Middleware struct {
	store  Store
	limit  int
	window time.Duration
	logger *slog.Logger
}

func New(s Store, limit int, window time.Duration, logger *slog.Logger) *Middleware {
	return &Middleware{store: s, limit: limit, window: window, logger: logger}
}

// Limit rejects requests over the per-user budget with 429. A failing
// counter store fails open: verification availability wins over strict
// limiting.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		p, ok := auth.GetPrincipal(ctx)
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Authentication required"))
			return
		}

		result, err := m.store.Allow(ctx, p.UserID.String(), m.limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "rate limit check failed, allowing request",
				"error", err,
				"user_id", p.UserID,
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(result.ResetAt).Seconds())+1))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "Too many requests, please try again later"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
