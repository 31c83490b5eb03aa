package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"bdivp/internal/audit"
	dErrors "bdivp/pkg/domain-errors"
	"bdivp/pkg/platform/httputil"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.GetOverview(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, overview)
}

// auditLogJSON is the wire shape of one audit entry. Nil UUIDs render as
// null so failed logins (which have no partner) serialize cleanly.
type auditLogJSON struct {
	ID             uuid.UUID       `json:"id"`
	PartnerID      *uuid.UUID      `json:"partnerId"`
	RequesterID    *uuid.UUID      `json:"requesterId"`
	RequesterEmail string          `json:"requesterEmail"`
	RequesterRole  string          `json:"requesterRole"`
	IPAddress      string          `json:"ipAddress"`
	UserAgent      string          `json:"userAgent"`
	Endpoint       string          `json:"endpoint"`
	RequestBody    json.RawMessage `json:"requestBody,omitempty"`
	ResponseBody   json.RawMessage `json:"responseBody,omitempty"`
	StatusCode     int             `json:"statusCode"`
	MatchedFields  []string        `json:"matchedFields"`
	NIDFieldsUsed  []string        `json:"nidFieldsUsed"`
	Verified       bool            `json:"verified"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type auditPageJSON struct {
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Logs  []auditLogJSON `json:"logs"`
}

func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	q, page, err := parseAuditQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.ListAuditLogs(r.Context(), q, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := auditPageJSON{
		Total: result.Total,
		Page:  result.Page,
		Limit: result.Limit,
		Logs:  make([]auditLogJSON, 0, len(result.Entries)),
	}
	for _, e := range result.Entries {
		out.Logs = append(out.Logs, toAuditLogJSON(e))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func toAuditLogJSON(e audit.Entry) auditLogJSON {
	log := auditLogJSON{
		ID:             e.ID,
		RequesterEmail: e.RequesterEmail,
		RequesterRole:  e.RequesterRole,
		IPAddress:      e.IPAddress,
		UserAgent:      e.UserAgent,
		Endpoint:       e.Endpoint,
		RequestBody:    e.RequestBody,
		ResponseBody:   e.ResponseBody,
		StatusCode:     e.StatusCode,
		MatchedFields:  e.MatchedFields,
		NIDFieldsUsed:  e.NIDFieldsUsed,
		Verified:       e.Verified,
		CreatedAt:      e.CreatedAt,
	}
	if e.PartnerID != uuid.Nil {
		id := e.PartnerID
		log.PartnerID = &id
	}
	if e.RequesterID != uuid.Nil {
		id := e.RequesterID
		log.RequesterID = &id
	}
	return log
}

func parseAuditQuery(r *http.Request) (audit.Query, int, error) {
	var q audit.Query
	params := r.URL.Query()

	if raw := params.Get("partnerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return audit.Query{}, 0, dErrors.New(dErrors.CodeInvalidInput, "Invalid partnerId")
		}
		q.PartnerID = id
	}
	if raw := params.Get("verified"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return audit.Query{}, 0, dErrors.New(dErrors.CodeInvalidInput, "verified must be true or false")
		}
		q.Verified = &v
	}
	if raw := params.Get("startDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return audit.Query{}, 0, dErrors.New(dErrors.CodeInvalidInput, "Invalid startDate")
		}
		q.From = t
	}
	if raw := params.Get("endDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return audit.Query{}, 0, dErrors.New(dErrors.CodeInvalidInput, "Invalid endDate")
		}
		// A bare endDate means "through the end of that day".
		if len(raw) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		q.To = t
	}
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return audit.Query{}, 0, dErrors.New(dErrors.CodeInvalidInput, "Invalid limit")
		}
		q.Limit = n
	}

	page := 1
	if raw := params.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return audit.Query{}, 0, dErrors.New(dErrors.CodeInvalidInput, "Invalid page")
		}
		page = n
	}
	return q, page, nil
}

// parseDate accepts RFC 3339 timestamps or bare dates.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
