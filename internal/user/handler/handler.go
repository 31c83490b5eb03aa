// Package handler exposes the user management endpoints, admin-gated at the
// router.
package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bdivp/internal/audit"
	"bdivp/internal/user/service"
	dErrors "bdivp/pkg/domain-errors"
	"bdivp/pkg/platform/httputil"
	"bdivp/pkg/platform/middleware/auth"
	"bdivp/pkg/platform/middleware/request"
)

type Handler struct {
	service  *service.Service
	recorder *audit.Recorder
}

func New(service *service.Service, recorder *audit.Recorder) *Handler {
	return &Handler{service: service, recorder: recorder}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

type createRequest struct {
	PartnerID   uuid.UUID `json:"partnerId"`
	Email       string    `json:"email"`
	Password    string    `json:"password"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	Scopes      []string  `json:"scopes"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "Invalid JSON body"))
		return
	}

	created, err := h.service.Create(r.Context(), service.CreateInput{
		PartnerID:   req.PartnerID,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        req.Role,
		Permissions: req.Permissions,
		Scopes:      req.Scopes,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

type updatePermissionsRequest struct {
	Permissions []string `json:"permissions"`
	Scopes      []string `json:"scopes"`
}

func (h *Handler) UpdatePermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "Invalid user id"))
		return
	}

	raw, readErr := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if readErr != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "Invalid JSON body"))
		return
	}
	var req updatePermissionsRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "Invalid JSON body"))
		return
	}

	updated, svcErr := h.service.UpdatePermissions(ctx, id, service.UpdatePermissionsInput{
		Permissions: req.Permissions,
		Scopes:      req.Scopes,
	})
	if svcErr != nil {
		httputil.WriteError(w, svcErr)
		return
	}

	// Grant changes are security-relevant; audit who changed what.
	if p, ok := auth.GetPrincipal(ctx); ok {
		snapshot, _ := json.Marshal(map[string][]string{
			"permissions": updated.Permissions,
			"scopes":      updated.Scopes,
		})
		h.recorder.Record(ctx, audit.Entry{
			PartnerID:      updated.PartnerID,
			RequesterID:    p.UserID,
			RequesterEmail: p.Email,
			RequesterRole:  string(p.Role),
			IPAddress:      request.GetClientIP(ctx),
			UserAgent:      request.GetUserAgent(ctx),
			Endpoint:       "/api/users/" + id.String() + "/permissions",
			RequestBody:    raw,
			ResponseBody:   snapshot,
			StatusCode:     http.StatusOK,
			MatchedFields:  []string{},
			NIDFieldsUsed:  []string{},
			Verified:       true,
		})
	}

	httputil.WriteJSON(w, http.StatusOK, updated)
}
