package verification

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"bdivp/internal/audit"
	dErrors "bdivp/pkg/domain-errors"
	"bdivp/pkg/platform/httputil"
	"bdivp/pkg/platform/middleware/auth"
	"bdivp/pkg/platform/middleware/request"
)

const maxRequestBody = 1 << 20

// Handler serves the verification endpoints. Every request, valid or not,
// leaves exactly one audit entry behind; the deferred record fires on each
// exit path.
type Handler struct {
	service  *Service
	recorder *audit.Recorder
}

func NewHandler(service *Service, recorder *audit.Recorder) *Handler {
	return &Handler{service: service, recorder: recorder}
}

func (h *Handler) VerifyBasic(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, TypeBasic, "/api/nid/verify-basic")
}

func (h *Handler) VerifyFull(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, TypeFull, "/api/nid/verify-full")
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request, typ Type, endpoint string) {
	ctx := r.Context()
	p, ok := auth.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Authentication required"))
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		raw = nil
	}

	entry := audit.Entry{
		PartnerID:      p.PartnerID,
		RequesterID:    p.UserID,
		RequesterEmail: p.Email,
		RequesterRole:  string(p.Role),
		IPAddress:      request.GetClientIP(ctx),
		UserAgent:      request.GetUserAgent(ctx),
		Endpoint:       endpoint,
		RequestBody:    json.RawMessage(raw),
		NIDFieldsUsed:  topLevelKeys(raw),
		MatchedFields:  []string{},
	}
	defer func() { h.recorder.Record(ctx, entry) }()

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		entry.StatusCode = http.StatusBadRequest
		entry.ResponseBody = errorSnapshot("Invalid JSON body")
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "Invalid JSON body"))
		return
	}
	if err := validate(req, typ); err != nil {
		entry.StatusCode = http.StatusBadRequest
		entry.ResponseBody = errorSnapshot(err.Message)
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Verify(ctx, p.PartnerID, req, typ)
	if err != nil {
		status, message := http.StatusInternalServerError, "Internal server error"
		var de *dErrors.Error
		if errors.As(err, &de) {
			status, message = dErrors.ToHTTPStatus(de.Code), de.Message
		}
		entry.StatusCode = status
		entry.ResponseBody = errorSnapshot(message)
		httputil.WriteError(w, err)
		return
	}

	entry.StatusCode = http.StatusOK
	entry.MatchedFields = result.MatchedFields
	entry.Verified = result.Verified
	if snapshot, err := json.Marshal(result); err == nil {
		entry.ResponseBody = snapshot
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func validate(req Request, typ Type) *dErrors.Error {
	if req.Identify == (Identify{}) || req.Verify == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "identify and verify objects are required")
	}
	if typ == TypeFull {
		if req.Identify.NID17Digit == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "nid17Digit is required for full verification")
		}
		if req.Identify.DateOfBirth == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "dateOfBirth is required")
		}
		return nil
	}

	if req.Identify.NID10Digit == "" && req.Identify.NID17Digit == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "Either nid10Digit or nid17Digit is required")
	}
	if req.Identify.DateOfBirth == "" || req.Verify["nameEn"] == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "dateOfBirth and nameEn are required")
	}
	return nil
}

// topLevelKeys reports which keys the caller submitted, even when the body
// fails validation later. Invalid JSON yields no keys.
func topLevelKeys(raw []byte) []string {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return []string{}
	}
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func errorSnapshot(message string) json.RawMessage {
	snapshot, _ := json.Marshal(map[string]string{"error": message})
	return snapshot
}
