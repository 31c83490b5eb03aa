// Package handler exposes the partner management endpoints, admin-gated at
// the router.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bdivp/internal/audit"
	"bdivp/internal/partner/service"
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
	summaries, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summaries)
}

type createRequest struct {
	OrgName     string `json:"orgName"`
	SystemName  string `json:"systemName"`
	NIDUsername string `json:"nidUsername"`
	NIDPassword string `json:"nidPassword"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "Invalid JSON body"))
		return
	}

	summary, err := h.service.Create(r.Context(), service.CreateInput{
		OrgName:     req.OrgName,
		SystemName:  req.SystemName,
		NIDUsername: req.NIDUsername,
		NIDPassword: req.NIDPassword,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, summary)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, idErr := pathID(r)
	if idErr != nil {
		httputil.WriteError(w, idErr)
		return
	}

	details, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details)
}

type updateRequest struct {
	OrgName    *string `json:"orgName"`
	SystemName *string `json:"systemName"`
	IsActive   *bool   `json:"isActive"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, idErr := pathID(r)
	if idErr != nil {
		httputil.WriteError(w, idErr)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "Invalid JSON body"))
		return
	}

	summary, err := h.service.Update(r.Context(), id, service.UpdateInput{
		OrgName:    req.OrgName,
		SystemName: req.SystemName,
		IsActive:   req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Deactivate(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Partner deactivated successfully")
}

type updateCredentialsRequest struct {
	NIDUsername string `json:"nidUsername"`
	NIDPassword string `json:"nidPassword"`
}

func (h *Handler) UpdateCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, idErr := pathID(r)
	if idErr != nil {
		httputil.WriteError(w, idErr)
		return
	}

	var req updateCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "Invalid JSON body"))
		return
	}

	details, err := h.service.UpdateCredentials(ctx, id, req.NIDUsername, req.NIDPassword)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Credential rotation is audited; the audit body records only which
	// fields changed, never their values.
	if p, ok := auth.GetPrincipal(ctx); ok {
		snapshot, _ := json.Marshal(map[string]bool{
			"nidUsername": req.NIDUsername != "",
			"nidPassword": req.NIDPassword != "",
		})
		h.recorder.Record(ctx, audit.Entry{
			PartnerID:      id,
			RequesterID:    p.UserID,
			RequesterEmail: p.Email,
			RequesterRole:  string(p.Role),
			IPAddress:      request.GetClientIP(ctx),
			UserAgent:      request.GetUserAgent(ctx),
			Endpoint:       "/api/partners/" + id.String() + "/credentials",
			RequestBody:    snapshot,
			ResponseBody:   json.RawMessage(`{"status":"success"}`),
			StatusCode:     http.StatusOK,
			MatchedFields:  []string{},
			NIDFieldsUsed:  []string{"nidUsername", "nidPassword"},
			Verified:       true,
		})
	}

	httputil.WriteJSON(w, http.StatusOK, details)
}

func pathID(r *http.Request) (uuid.UUID, *dErrors.Error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "Invalid partner id")
	}
	return id, nil
}
