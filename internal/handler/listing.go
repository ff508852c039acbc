package handler

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"marketplace-rest-api/internal/model"
	"marketplace-rest-api/internal/repository"
	"marketplace-rest-api/pkg/apierror"
	"marketplace-rest-api/pkg/money"
	"marketplace-rest-api/pkg/response"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultListingLimit = 20
	maxListingLimit     = 50
	maxListingImages    = 10
)

var listingSorts = map[string]bool{
	"":           true,
	"newest":     true,
	"price_asc":  true,
	"price_desc": true,
	"popular":    true,
}

// ListingHandler handles listing HTTP requests.
type ListingHandler struct {
	listings repository.ListingRepository
	social   repository.SocialRepository
	logger   *zap.Logger
}

// NewListingHandler creates a new listing handler.
func NewListingHandler(listings repository.ListingRepository, social repository.SocialRepository, logger *zap.Logger) *ListingHandler {
	return &ListingHandler{
		listings: listings,
		social:   social,
		logger:   logger,
	}
}

// List handles GET /api/listings
func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, page, apiErr := parseListingFilter(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	listings, total, err := h.listings.List(r.Context(), filter)
	if err != nil {
		serverError(w, r, h.logger, "failed to list listings", err)
		return
	}
	for i := range listings {
		formatListing(&listings[i])
	}

	response.JSONWithMeta(w, http.StatusOK, listings, page, filter.Limit, total)
}

func parseListingFilter(r *http.Request) (model.ListingFilter, int, *apierror.Error) {
	q := r.URL.Query()
	var filter model.ListingFilter

	page, limit, apiErr := pagination(r, defaultListingLimit, maxListingLimit)
	if apiErr != nil {
		return filter, 0, apiErr
	}
	filter.Limit = limit
	filter.Offset = (page - 1) * limit
	filter.Query = strings.TrimSpace(q.Get("q"))

	for name, dst := range map[string]*int64{
		"category_id":    &filter.CategoryID,
		"subcategory_id": &filter.SubcategoryID,
	} {
		if raw := q.Get(name); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id < 1 {
				return filter, 0, apierror.BadRequest(name + " must be a positive integer")
			}
			*dst = id
		}
	}

	for name, dst := range map[string]**decimal.Decimal{
		"min_price": &filter.MinPrice,
		"max_price": &filter.MaxPrice,
	} {
		if raw := q.Get(name); raw != "" {
			amount, err := money.ParseAmount(raw)
			if err != nil || amount.IsNegative() {
				return filter, 0, apierror.BadRequest(name + " must be a non-negative amount")
			}
			*dst = &amount
		}
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return filter, 0, apierror.BadRequest("min_price must not exceed max_price")
	}

	filter.Sort = q.Get("sort")
	if !listingSorts[filter.Sort] {
		return filter, 0, apierror.BadRequest("sort must be one of newest, price_asc, price_desc, popular")
	}
	return filter, page, nil
}

func formatListing(l *model.Listing) {
	l.FormattedPrice = money.FormatPrice(l.Price, l.Currency)
	if l.Images == nil {
		l.Images = []string{}
	}
}

// Get handles GET /api/listings/{id}
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	listing, err := h.listings.GetByID(r.Context(), id)
	if err != nil {
		repoError(w, r, h.logger, "listing not found", err)
		return
	}
	formatListing(listing)
	response.OK(w, listing)
}

// CreateListingRequest is the body of POST /api/listings.
type CreateListingRequest struct {
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	Currency      string           `json:"currency"`
	CategoryID    int64            `json:"category_id"`
	SubcategoryID *int64           `json:"subcategory_id"`
	Location      string           `json:"location"`
	Images        []string         `json:"images"`
}

// Validate normalizes the request and returns field errors.
func (req *CreateListingRequest) Validate() []apierror.FieldError {
	var errs []apierror.FieldError

	req.Title = strings.TrimSpace(req.Title)
	if n := utf8.RuneCountInString(req.Title); n < 3 || n > 120 {
		errs = append(errs, apierror.FieldError{Field: "title", Message: "must be between 3 and 120 characters"})
	}

	req.Description = strings.TrimSpace(req.Description)
	if utf8.RuneCountInString(req.Description) > 5000 {
		errs = append(errs, apierror.FieldError{Field: "description", Message: "must be at most 5000 characters"})
	}

	if req.Price == nil {
		errs = append(errs, apierror.FieldError{Field: "price", Message: "is required"})
	} else if req.Price.IsNegative() {
		errs = append(errs, apierror.FieldError{Field: "price", Message: "must not be negative"})
	} else if !money.InRange(*req.Price) {
		errs = append(errs, apierror.FieldError{Field: "price", Message: "is out of range"})
	}

	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = "USD"
	}
	if !money.IsCurrencyCode(req.Currency) {
		errs = append(errs, apierror.FieldError{Field: "currency", Message: "must be a 3-letter currency code"})
	}

	if req.CategoryID < 1 {
		errs = append(errs, apierror.FieldError{Field: "category_id", Message: "is required"})
	}
	if req.SubcategoryID != nil && *req.SubcategoryID < 1 {
		errs = append(errs, apierror.FieldError{Field: "subcategory_id", Message: "must be a positive integer"})
	}

	if len(req.Images) > maxListingImages {
		errs = append(errs, apierror.FieldError{Field: "images", Message: "at most 10 images"})
	}
	req.Location = strings.TrimSpace(req.Location)

	return errs
}

// Create handles POST /api/listings
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateListingRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.Error(w, apierror.ValidationError("invalid listing", errs...))
		return
	}

	images := req.Images
	if images == nil {
		images = []string{}
	}

	listing, err := h.listings.Create(r.Context(), &model.NewListing{
		UserID:        user.ID,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		Title:         req.Title,
		Description:   req.Description,
		Price:         *req.Price,
		Currency:      req.Currency,
		Location:      req.Location,
		Images:        images,
		Status:        model.ListingPending,
	})
	if err != nil {
		serverError(w, r, h.logger, "failed to create listing", err)
		return
	}

	formatListing(listing)
	response.Created(w, listing)
}

// Delete handles DELETE /api/listings/{id}
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	if err := h.listings.Delete(r.Context(), id, user.ID); err != nil {
		repoError(w, r, h.logger, "listing not found", err)
		return
	}
	response.OK(w, map[string]any{"id": id, "deleted": true})
}

// RecordView handles POST /api/listings/{id}/views
func (h *ListingHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	views, err := h.listings.IncrementViews(r.Context(), id)
	if err != nil {
		repoError(w, r, h.logger, "listing not found", err)
		return
	}
	response.OK(w, map[string]int64{"views": views})
}

// Like handles POST /api/listings/{id}/like
func (h *ListingHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, true)
}

// Unlike handles DELETE /api/listings/{id}/like
func (h *ListingHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, false)
}

func (h *ListingHandler) toggleLike(w http.ResponseWriter, r *http.Request, like bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var err error
	if like {
		err = h.social.LikeListing(r.Context(), user.ID, id)
	} else {
		err = h.social.UnlikeListing(r.Context(), user.ID, id)
	}
	if err != nil {
		repoError(w, r, h.logger, "listing not found", err)
		return
	}

	response.OK(w, map[string]any{
		"like":  model.Like{UserID: user.ID, ListingID: id},
		"liked": like,
	})
}
