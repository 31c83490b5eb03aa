// Package httpapi wires the HTTP surface: routes, middleware chains and the
// operational endpoints. Handlers stay thin; everything interesting happens
// in the domain services.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bdivp/internal/admin"
	authhandler "bdivp/internal/auth/handler"
	partnerhandler "bdivp/internal/partner/handler"
	"bdivp/internal/ratelimit"
	"bdivp/internal/user"
	userhandler "bdivp/internal/user/handler"
	"bdivp/internal/verification"
	"bdivp/pkg/platform/httputil"
	"bdivp/pkg/platform/middleware/guard"
	"bdivp/pkg/platform/middleware/request"
)

// Deps collects everything the router mounts. RequireAuth is passed as a
// built middleware so the router does not need to know about token stores.
type Deps struct {
	Auth         *authhandler.Handler
	Partners     *partnerhandler.Handler
	Users        *userhandler.Handler
	Verification *verification.Handler
	Admin        *admin.Handler

	RequireAuth func(http.Handler) http.Handler
	RateLimit   *ratelimit.Middleware
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Metadata())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteMessage(w, http.StatusOK, "ok")
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", d.Auth.Login)
			r.Post("/forgot-password", d.Auth.ForgotPassword)
			r.Post("/reset-password", d.Auth.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(d.RequireAuth)
				r.Get("/me", d.Auth.Me)
				r.Post("/logout", d.Auth.Logout)
			})
		})

		r.Route("/nid", func(r chi.Router) {
			r.Use(d.RequireAuth)
			r.Use(d.RateLimit.Limit)
			r.Use(guard.RequirePartnerOrAdmin())
			r.Post("/verify-basic", d.Verification.VerifyBasic)
			r.Post("/verify-full", d.Verification.VerifyFull)
		})

		r.Route("/partners", func(r chi.Router) {
			r.Use(d.RequireAuth)

			r.Group(func(r chi.Router) {
				r.Use(guard.RequireRole(user.RoleAdmin))
				r.Get("/", d.Partners.List)
				r.Post("/", d.Partners.Create)
				r.Put("/{id}", d.Partners.Update)
				r.Delete("/{id}", d.Partners.Deactivate)
				r.Put("/{id}/credentials", d.Partners.UpdateCredentials)
			})

			// Partners may read their own record; admins may read any.
			r.With(guard.RequirePartnerOrAdmin()).Get("/{id}", d.Partners.Get)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(d.RequireAuth)
			r.Use(guard.RequireRole(user.RoleAdmin))
			r.Get("/", d.Users.List)
			r.Post("/", d.Users.Create)
			r.Put("/{id}/permissions", d.Users.UpdatePermissions)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(d.RequireAuth)
			r.Use(guard.RequireRole(user.RoleAdmin))
			r.Use(guard.RequireScope("admin"))
			r.Get("/overview", d.Admin.Overview)
			r.Get("/audit-logs", d.Admin.AuditLogs)
		})
	})

	return r
}
