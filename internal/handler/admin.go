package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strings"
	"time"

	"marketplace-rest-api/internal/cache"
	"marketplace-rest-api/internal/model"
	"marketplace-rest-api/internal/repository"
	"marketplace-rest-api/pkg/apierror"
	"marketplace-rest-api/pkg/response"

	"go.uber.org/zap"
)

const (
	minSearchLength = 2
	searchLimit     = 20
	maxReasonLength = 500
)

// AdminConfig wires the admin handler.
type AdminConfig struct {
	Profiles  repository.ProfileRepository
	Listings  repository.ListingRepository
	Audit     repository.AuditRepository
	Cache     cache.Cache
	AuditType string // supabase, sqlite, postgres, mysql, mongodb
	CacheType string // memory or redis
	Logger    *zap.Logger
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	profiles  repository.ProfileRepository
	listings  repository.ListingRepository
	audit     repository.AuditRepository
	cache     cache.Cache
	auditType string
	cacheType string
	logger    *zap.Logger
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(cfg AdminConfig) *AdminHandler {
	return &AdminHandler{
		profiles:  cfg.Profiles,
		listings:  cfg.Listings,
		audit:     cfg.Audit,
		cache:     cfg.Cache,
		auditType: cfg.AuditType,
		cacheType: cfg.CacheType,
		logger:    cfg.Logger,
		startTime: time.Now(),
	}
}

// SearchUsers handles GET /api/admin/users/search?q=
func (h *AdminHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(q)) < minSearchLength {
		response.OK(w, []model.Profile{})
		return
	}

	profiles, err := h.profiles.Search(r.Context(), q, searchLimit)
	if err != nil {
		serverError(w, r, h.logger, "user search failed", err)
		return
	}
	response.OK(w, profiles)
}

// Approve handles POST /api/admin/listings/{id}/approve
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, model.ListingActive, "listing.approve", nil)
}

// RejectRequest carries the moderator's reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /api/admin/listings/{id}/reject
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		response.Error(w, apierror.ValidationError("reason is required",
			apierror.FieldError{Field: "reason", Message: "required"}))
		return
	}
	if len([]rune(reason)) > maxReasonLength {
		response.Error(w, apierror.ValidationError("reason is too long",
			apierror.FieldError{Field: "reason", Message: "at most 500 characters"}))
		return
	}

	h.moderate(w, r, model.ListingRejected, "listing.reject", &reason)
}

func (h *AdminHandler) moderate(w http.ResponseWriter, r *http.Request, to, action string, reason *string) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	listing, err := h.listings.SetStatus(r.Context(), id, model.ListingPending, to, reason)
	if errors.Is(err, repository.ErrNotFound) {
		h.notPending(w, r, id)
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "listing status update failed", err)
		return
	}

	details := map[string]string{"from": model.ListingPending, "to": to}
	if reason != nil {
		details["reason"] = *reason
	}
	h.record(r.Context(), user.ID, action, id, details)

	response.OK(w, listing)
}

// notPending distinguishes a missing listing from one that was already moderated.
func (h *AdminHandler) notPending(w http.ResponseWriter, r *http.Request, id string) {
	_, err := h.listings.GetByID(r.Context(), id)
	switch {
	case err == nil:
		response.Error(w, apierror.Conflict("listing is not pending"))
	case errors.Is(err, repository.ErrNotFound):
		response.Error(w, apierror.NotFound("listing not found"))
	default:
		serverError(w, r, h.logger, "listing lookup failed", err)
	}
}

// record writes an audit entry. The moderation already happened, so a
// failure is logged and not returned to the caller.
func (h *AdminHandler) record(ctx context.Context, actorID, action, targetID string, details map[string]string) {
	raw, _ := json.Marshal(details)
	entry := &model.AuditLogEntry{
		ActorID:    actorID,
		Action:     action,
		TargetType: "listing",
		TargetID:   targetID,
		Details:    raw,
	}
	if err := h.audit.Insert(ctx, entry); err != nil {
		h.logger.Error("audit insert failed",
			zap.String("action", action),
			zap.String("target_id", targetID),
			zap.Error(err))
	}
}

// AuditLogs handles GET /api/admin/audit-logs?page=&limit=
func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	page, limit, apiErr := pagination(r, 20, 100)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	entries, total, err := h.audit.List(r.Context(), limit, (page-1)*limit)
	if err != nil {
		serverError(w, r, h.logger, "audit log list failed", err)
		return
	}
	response.JSONWithMeta(w, http.StatusOK, entries, page, limit, total)
}

// Stats handles GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["audit_store"] = h.auditType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	stats["cache"] = h.cacheStatus(r.Context())

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

func (h *AdminHandler) cacheStatus(ctx context.Context) map[string]interface{} {
	if h.cache == nil {
		return map[string]interface{}{"status": "not_configured"}
	}
	if err := h.cache.Ping(ctx); err != nil {
		return map[string]interface{}{
			"type":   h.cacheType,
			"status": "error",
			"error":  err.Error(),
		}
	}
	return map[string]interface{}{
		"type":   h.cacheType,
		"status": "connected",
	}
}
