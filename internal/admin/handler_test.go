package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Handler_Overview(t *testing.T) {
	f := newAdminFixture(t)
	f.seedAudit(t, "/api/nid/verify-basic", true, time.Now())
	h := NewHandler(f.service)

	rec := httptest.NewRecorder()
	h.Overview(rec, httptest.NewRequest(http.MethodGet, "/api/admin/overview", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Status string   `json:"status"`
		Data   Overview `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "success", envelope.Status)
	assert.Equal(t, 1, envelope.Data.Partners)
	assert.Equal(t, 1, envelope.Data.Verifications.Total)
}

func Test_Handler_AuditLogs(t *testing.T) {
	f := newAdminFixture(t)
	now := time.Now()
	f.seedAudit(t, "/api/nid/verify-basic", true, now.Add(-time.Minute))
	f.seedAudit(t, "/api/nid/verify-basic", false, now)
	h := NewHandler(f.service)

	get := func(target string) (*httptest.ResponseRecorder, auditPageJSON) {
		t.Helper()
		rec := httptest.NewRecorder()
		h.AuditLogs(rec, httptest.NewRequest(http.MethodGet, target, nil))
		var envelope struct {
			Status string        `json:"status"`
			Data   auditPageJSON `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		return rec, envelope.Data
	}

	t.Run("lists newest first", func(t *testing.T) {
		rec, page := get("/api/admin/audit-logs")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, page.Total)
		require.Len(t, page.Logs, 2)
		assert.False(t, page.Logs[0].Verified)
		assert.True(t, page.Logs[1].Verified)
	})

	t.Run("filters by verified", func(t *testing.T) {
		rec, page := get("/api/admin/audit-logs?verified=true")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, page.Total)
		require.Len(t, page.Logs, 1)
		assert.True(t, page.Logs[0].Verified)
	})

	t.Run("filters by partner", func(t *testing.T) {
		_, page := get("/api/admin/audit-logs?partnerId=" + uuid.New().String())
		assert.Zero(t, page.Total)

		_, page = get("/api/admin/audit-logs?partnerId=" + f.partner.ID.String())
		assert.Equal(t, 2, page.Total)
	})

	t.Run("honors page and limit", func(t *testing.T) {
		_, page := get("/api/admin/audit-logs?limit=1&page=2")
		assert.Equal(t, 2, page.Total)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, 1, page.Limit)
		require.Len(t, page.Logs, 1)
		assert.True(t, page.Logs[0].Verified)
	})

	t.Run("rejects malformed filters", func(t *testing.T) {
		for _, target := range []string{
			"/api/admin/audit-logs?partnerId=not-a-uuid",
			"/api/admin/audit-logs?verified=maybe",
			"/api/admin/audit-logs?startDate=yesterday",
			"/api/admin/audit-logs?page=0",
			"/api/admin/audit-logs?limit=-1",
		} {
			rec := httptest.NewRecorder()
			h.AuditLogs(rec, httptest.NewRequest(http.MethodGet, target, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		}
	})
}
