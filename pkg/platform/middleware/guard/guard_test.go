package guard

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"bdivp/internal/user"
	"bdivp/pkg/platform/middleware/auth"
)

func principal(role user.Role) auth.Principal {
	return auth.Principal{
		UserID:      uuid.New(),
		PartnerID:   uuid.New(),
		Email:       "ops@acme.example",
		Role:        role,
		Permissions: user.DefaultPermissions(role),
		Scopes:      user.DefaultScopes(role),
	}
}

func serveGuard(mw func(http.Handler) http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	return rec
}

func withPrincipal(req *http.Request, p auth.Principal) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), p))
}

func Test_RequireRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/partners", nil)

	t.Run("no principal", func(t *testing.T) {
		rec := serveGuard(RequireRole(user.RoleAdmin), req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		rec := serveGuard(RequireRole(user.RoleAdmin), withPrincipal(req, principal(user.RolePartner)))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("allowed role", func(t *testing.T) {
		rec := serveGuard(RequireRole(user.RoleAdmin, user.RolePartner), withPrincipal(req, principal(user.RolePartner)))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_RequireScope(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/overview", nil)

	t.Run("no principal", func(t *testing.T) {
		rec := serveGuard(RequireScope("admin"), req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing scope", func(t *testing.T) {
		rec := serveGuard(RequireScope("admin"), withPrincipal(req, principal(user.RolePartner)))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("granted scope", func(t *testing.T) {
		rec := serveGuard(RequireScope("admin"), withPrincipal(req, principal(user.RoleAdmin)))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no wildcard for scopes", func(t *testing.T) {
		p := principal(user.RolePartner)
		p.Scopes = []string{"*"}
		rec := serveGuard(RequireScope("admin"), withPrincipal(req, p))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func Test_RequirePermission(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)

	t.Run("missing permission", func(t *testing.T) {
		p := principal(user.RoleUser)
		rec := serveGuard(RequirePermission("write:own"), withPrincipal(req, p))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("literal permission", func(t *testing.T) {
		rec := serveGuard(RequirePermission("write:own"), withPrincipal(req, principal(user.RolePartner)))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wildcard passes any permission", func(t *testing.T) {
		rec := serveGuard(RequirePermission("write:anything"), withPrincipal(req, principal(user.RoleAdmin)))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_RequirePartnerOrAdmin(t *testing.T) {
	t.Run("admin passes regardless of target", func(t *testing.T) {
		body := strings.NewReader(`{"partnerId":"` + uuid.NewString() + `"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/nid/verify-basic", body)
		rec := serveGuard(RequirePartnerOrAdmin(), withPrincipal(req, principal(user.RoleAdmin)))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("partner matching own id passes", func(t *testing.T) {
		p := principal(user.RolePartner)
		body := strings.NewReader(`{"partnerId":"` + p.PartnerID.String() + `"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/nid/verify-basic", body)
		rec := serveGuard(RequirePartnerOrAdmin(), withPrincipal(req, p))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("partner naming another partner is forbidden", func(t *testing.T) {
		body := strings.NewReader(`{"partnerId":"` + uuid.NewString() + `"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/nid/verify-basic", body)
		rec := serveGuard(RequirePartnerOrAdmin(), withPrincipal(req, principal(user.RolePartner)))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no target falls back to own partner", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/nid/verify-basic", strings.NewReader(`{}`))
		rec := serveGuard(RequirePartnerOrAdmin(), withPrincipal(req, principal(user.RolePartner)))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("body stays readable for the handler", func(t *testing.T) {
		p := principal(user.RolePartner)
		body := strings.NewReader(`{"partnerId":"` + p.PartnerID.String() + `","identify":{}}`)
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/nid/verify-basic", body), p)

		var handlerSaw string
		rec := httptest.NewRecorder()
		RequirePartnerOrAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			handlerSaw = string(raw)
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, handlerSaw, p.PartnerID.String())
	})

	t.Run("url param names the partner", func(t *testing.T) {
		p := principal(user.RolePartner)

		r := chi.NewRouter()
		r.With(RequirePartnerOrAdmin()).Get("/api/partners/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, withPrincipal(httptest.NewRequest(http.MethodGet, "/api/partners/"+p.PartnerID.String(), nil), p))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, withPrincipal(httptest.NewRequest(http.MethodGet, "/api/partners/"+uuid.NewString(), nil), p))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/nid/verify-basic", nil)
		rec := serveGuard(RequirePartnerOrAdmin(), req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
