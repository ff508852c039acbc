package handler

import (
	"context"
	"net/http"

	"marketplace-rest-api/pkg/response"

	"go.uber.org/zap"
)

// ExpiryRunner runs one listing-expiry sweep.
type ExpiryRunner interface {
	RunNow(ctx context.Context) (int64, error)
}

// CronHandler exposes scheduled jobs to an external scheduler.
type CronHandler struct {
	expiry ExpiryRunner
	logger *zap.Logger
}

// NewCronHandler creates a new cron handler.
func NewCronHandler(expiry ExpiryRunner, logger *zap.Logger) *CronHandler {
	return &CronHandler{expiry: expiry, logger: logger}
}

// ExpireListings handles GET/POST /api/cron/expire-listings
func (h *CronHandler) ExpireListings(w http.ResponseWriter, r *http.Request) {
	expired, err := h.expiry.RunNow(r.Context())
	if err != nil {
		serverError(w, r, h.logger, "listing expiry failed", err)
		return
	}

	h.logger.Info("listing expiry triggered", zap.Int64("expired", expired))
	response.OK(w, map[string]int64{"expired": expired})
}
