package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketplace-rest-api/internal/cache"
	"marketplace-rest-api/internal/model"
	"marketplace-rest-api/internal/repository"
	"marketplace-rest-api/pkg/apierror"
	"marketplace-rest-api/pkg/money"
	"marketplace-rest-api/pkg/response"

	"go.uber.org/zap"
)

// CatalogHandler serves categories and subscription plans.
type CatalogHandler struct {
	categories repository.CategoryRepository
	plans      repository.PlanRepository
	cache      cache.Cache
	ttl        time.Duration
	logger     *zap.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(
	categories repository.CategoryRepository,
	plans repository.PlanRepository,
	c cache.Cache,
	ttl time.Duration,
	logger *zap.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		categories: categories,
		plans:      plans,
		cache:      c,
		ttl:        ttl,
		logger:     logger,
	}
}

// ListCategories handles GET /api/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var categories []model.Category
	if cache.GetJSON(ctx, h.cache, cache.KeyCategories, &categories) {
		response.OK(w, categories)
		return
	}

	categories, err := h.categories.ListCategories(ctx)
	if err != nil {
		serverError(w, r, h.logger, "failed to list categories", err)
		return
	}

	if err := cache.SetJSON(ctx, h.cache, cache.KeyCategories, categories, h.ttl); err != nil {
		h.logger.Warn("failed to cache categories", zap.Error(err))
	}
	response.OK(w, categories)
}

// ListSubcategories handles GET /api/subcategories?category_id=
func (h *CatalogHandler) ListSubcategories(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("category_id"))
	categoryID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || categoryID < 1 {
		response.Error(w, apierror.BadRequest("category_id must be a positive integer"))
		return
	}

	subcategories, err := h.categories.ListSubcategories(r.Context(), categoryID)
	if err != nil {
		serverError(w, r, h.logger, "failed to list subcategories", err)
		return
	}
	response.OK(w, subcategories)
}

// ListPlans handles GET /api/plans
func (h *CatalogHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListActive(r.Context())
	if err != nil {
		serverError(w, r, h.logger, "failed to list plans", err)
		return
	}
	for i := range plans {
		plans[i].FormattedPrice = money.FormatPrice(plans[i].Price, plans[i].Currency)
	}
	response.OK(w, plans)
}

// CurrentSubscription handles GET /api/subscription
func (h *CatalogHandler) CurrentSubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	sub, err := h.plans.CurrentSubscription(r.Context(), user.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to load subscription", err)
		return
	}
	if sub != nil && sub.Plan != nil {
		sub.Plan.FormattedPrice = money.FormatPrice(sub.Plan.Price, sub.Plan.Currency)
	}
	response.OK(w, sub)
}
