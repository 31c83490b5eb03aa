// Package guard provides composable authorization middlewares layered on top
// of the auth middleware's Principal. Every guard answers 401 when no
// principal is attached and 403 when the principal is present but not
// allowed.
package guard

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"bdivp/internal/user"
	dErrors "bdivp/pkg/domain-errors"
	"bdivp/pkg/platform/httputil"
	"bdivp/pkg/platform/middleware/auth"
)

const maxBodyPeek = 1 << 20

// RequireRole allows only principals whose role is among the given roles.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.GetPrincipal(r.Context())
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Authentication required"))
				return
			}
			if !slices.Contains(roles, p.Role) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "Insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireScope allows only principals carrying the given scope. Scopes have
// no wildcard; the grant must be literal.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.GetPrincipal(r.Context())
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Authentication required"))
				return
			}
			if !slices.Contains(p.Scopes, scope) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "Insufficient scope"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission allows principals holding the given permission or the
// wildcard grant.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.GetPrincipal(r.Context())
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Authentication required"))
				return
			}
			if !slices.Contains(p.Permissions, permission) && !slices.Contains(p.Permissions, user.PermissionWildcard) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePartnerOrAdmin lets admins through unconditionally. Everyone else
// may only act on their own partner: when the request names a partner (URL
// param or a partnerId field in a JSON body) it must match the principal's
// partner id. Requests that name no partner fall back to the principal's own.
func RequirePartnerOrAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.GetPrincipal(r.Context())
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Authentication required"))
				return
			}
			if p.Role == user.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}

			target := chi.URLParam(r, "partnerID")
			if target == "" {
				target = chi.URLParam(r, "id")
			}
			if target == "" {
				target = peekPartnerID(r)
			}
			if target != "" && target != p.PartnerID.String() {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "Access to this partner is not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peekPartnerID reads a partnerId field out of a JSON body without consuming
// it for the handler.
func peekPartnerID(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyPeek))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var body struct {
		PartnerID string `json:"partnerId"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.PartnerID
}
