package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace-rest-api/internal/cache"
	"marketplace-rest-api/internal/middleware"
	"marketplace-rest-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const adminID = "99999999-9999-4999-8999-999999999999"

type adminFixture struct {
	h        *AdminHandler
	listings *fakeListings
	profiles *fakeProfiles
	audit    *fakeAudit
}

func newAdminFixture(t *testing.T) adminFixture {
	t.Helper()
	pending := sampleListing()
	pending.Status = model.ListingPending

	f := adminFixture{
		listings: newFakeListings(pending),
		profiles: &fakeProfiles{profiles: map[string]*model.Profile{adminID: {ID: adminID, Role: "admin"}}},
		audit:    &fakeAudit{},
	}
	mem := cache.NewMemoryCache("test", time.Minute)
	t.Cleanup(func() { _ = mem.Close() })

	f.h = NewAdminHandler(AdminConfig{
		Profiles:  f.profiles,
		Listings:  f.listings,
		Audit:     f.audit,
		Cache:     mem,
		AuditType: "sqlite",
		CacheType: "memory",
		Logger:    zap.NewNop(),
	})
	return f
}

func adminUser() *middleware.User {
	return &middleware.User{ID: adminID, AAL: "aal2"}
}

func TestSearchUsersShortQuery(t *testing.T) {
	for _, q := range []string{"", "a", "%20b%20"} {
		f := newAdminFixture(t)
		rec := httptest.NewRecorder()
		f.h.SearchUsers(rec, newRequest(http.MethodGet, "/api/admin/users/search?q="+q, "", adminUser(), nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var got []model.Profile
		decodeData(t, rec, &got)
		assert.Empty(t, got)
		assert.Empty(t, f.profiles.searched, "repository must not be queried for %q", q)
	}
}

func TestSearchUsers(t *testing.T) {
	f := newAdminFixture(t)
	rec := httptest.NewRecorder()
	f.h.SearchUsers(rec, newRequest(http.MethodGet, "/api/admin/users/search?q=%20bo%20", "", adminUser(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bo", f.profiles.searched)
	var got []model.Profile
	decodeData(t, rec, &got)
	assert.Len(t, got, 1)
}

func TestApproveWritesAudit(t *testing.T) {
	f := newAdminFixture(t)
	rec := httptest.NewRecorder()
	f.h.Approve(rec, newRequest(http.MethodPost, "/", "", adminUser(), map[string]string{"id": listingID}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.ListingActive, f.listings.listings[listingID].Status)

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, adminID, entry.ActorID)
	assert.Equal(t, "listing.approve", entry.Action)
	assert.Equal(t, "listing", entry.TargetType)
	assert.Equal(t, listingID, entry.TargetID)
}

func TestApproveAlreadyModerated(t *testing.T) {
	f := newAdminFixture(t)
	f.listings.listings[listingID].Status = model.ListingActive

	rec := httptest.NewRecorder()
	f.h.Approve(rec, newRequest(http.MethodPost, "/", "", adminUser(), map[string]string{"id": listingID}))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, f.audit.entries)

	rec = httptest.NewRecorder()
	f.h.Approve(rec, newRequest(http.MethodPost, "/", "", adminUser(), map[string]string{"id": convID}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveSurvivesAuditFailure(t *testing.T) {
	f := newAdminFixture(t)
	f.audit.err = errors.New("audit store down")

	rec := httptest.NewRecorder()
	f.h.Approve(rec, newRequest(http.MethodPost, "/", "", adminUser(), map[string]string{"id": listingID}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReject(t *testing.T) {
	f := newAdminFixture(t)
	params := map[string]string{"id": listingID}

	rec := httptest.NewRecorder()
	f.h.Reject(rec, newRequest(http.MethodPost, "/", `{"reason":"   "}`, adminUser(), params))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, model.ListingPending, f.listings.listings[listingID].Status)

	rec = httptest.NewRecorder()
	f.h.Reject(rec, newRequest(http.MethodPost, "/", `{"reason":"blurry photos"}`, adminUser(), params))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	l := f.listings.listings[listingID]
	assert.Equal(t, model.ListingRejected, l.Status)
	require.NotNil(t, l.RejectReason)
	assert.Equal(t, "blurry photos", *l.RejectReason)

	require.Len(t, f.audit.entries, 1)
	var details map[string]string
	require.NoError(t, json.Unmarshal(f.audit.entries[0].Details, &details))
	assert.Equal(t, "blurry photos", details["reason"])
	assert.Equal(t, model.ListingRejected, details["to"])
}

func TestAuditLogsPaginated(t *testing.T) {
	f := newAdminFixture(t)
	for i := 0; i < 5; i++ {
		f.audit.entries = append(f.audit.entries, model.AuditLogEntry{ID: string(rune('a' + i))})
	}

	rec := httptest.NewRecorder()
	f.h.AuditLogs(rec, newRequest(http.MethodGet, "/api/admin/audit-logs?page=2&limit=2", "", adminUser(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 2, env.Meta.Page)
	assert.Equal(t, 2, env.Meta.Limit)
	assert.Equal(t, int64(5), env.Meta.Total)

	var got []model.AuditLogEntry
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)

	rec = httptest.NewRecorder()
	f.h.AuditLogs(rec, newRequest(http.MethodGet, "/api/admin/audit-logs?page=999999999999&limit=100", "", adminUser(), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	f := newAdminFixture(t)
	rec := httptest.NewRecorder()
	f.h.Stats(rec, newRequest(http.MethodGet, "/", "", adminUser(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	decodeData(t, rec, &got)
	assert.Equal(t, "sqlite", got["audit_store"])
	assert.Contains(t, got, "memory")
	assert.Contains(t, got, "runtime")
	cacheStats, ok := got["cache"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "connected", cacheStats["status"])
	assert.Equal(t, "memory", cacheStats["type"])
}

type unreachableCache struct{ *cache.MemoryCache }

func (unreachableCache) Ping(ctx context.Context) error {
	return errors.New("dial tcp: connection refused")
}

func TestStatsReportsCacheOutage(t *testing.T) {
	mem := cache.NewMemoryCache("test", time.Minute)
	t.Cleanup(func() { _ = mem.Close() })
	h := NewAdminHandler(AdminConfig{
		Cache:     unreachableCache{mem},
		AuditType: "supabase",
		CacheType: "redis",
		Logger:    zap.NewNop(),
	})

	rec := httptest.NewRecorder()
	h.Stats(rec, newRequest(http.MethodGet, "/", "", adminUser(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	decodeData(t, rec, &got)
	cacheStats, ok := got["cache"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "error", cacheStats["status"])
	assert.Equal(t, "redis", cacheStats["type"])
}
