package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"marketplace-rest-api/internal/model"
	"marketplace-rest-api/internal/supabase"
)

const listingsTable = "listings"

// SupabaseListingRepository implements ListingRepository over PostgREST.
type SupabaseListingRepository struct {
	db *supabase.Client
}

// NewSupabaseListingRepository creates a new listing repository.
func NewSupabaseListingRepository(db *supabase.Client) *SupabaseListingRepository {
	return &SupabaseListingRepository{db: db}
}

// List returns active listings matching filter.
func (r *SupabaseListingRepository) List(ctx context.Context, filter model.ListingFilter) ([]model.Listing, int64, error) {
	q := r.db.From(listingsTable).
		Select("*").
		Eq("status", model.ListingActive).
		Count("exact")

	if term := sanitizeSearch(filter.Query); term != "" {
		q.ILike("title", "*"+term+"*")
	}
	if filter.CategoryID > 0 {
		q.Eq("category_id", filter.CategoryID)
	}
	if filter.SubcategoryID > 0 {
		q.Eq("subcategory_id", filter.SubcategoryID)
	}
	if filter.MinPrice != nil {
		q.Gte("price", filter.MinPrice.String())
	}
	if filter.MaxPrice != nil {
		q.Lte("price", filter.MaxPrice.String())
	}

	switch filter.Sort {
	case "price_asc":
		q.Order("price", true)
	case "price_desc":
		q.Order("price", false)
	case "popular":
		q.Order("views", false)
	default:
		q.Order("created_at", false)
	}
	q.Limit(filter.Limit).Offset(filter.Offset)

	resp, err := q.Execute(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list listings: %w", err)
	}

	listings := []model.Listing{}
	if err := resp.Decode(&listings); err != nil {
		return nil, 0, fmt.Errorf("failed to list listings: %w", err)
	}

	total := resp.Total()
	if total < 0 {
		total = int64(len(listings))
	}
	return listings, total, nil
}

// GetByID retrieves a listing by id.
func (r *SupabaseListingRepository) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	resp, err := r.db.From(listingsTable).Select("*").Eq("id", id).Single().Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	var listing model.Listing
	if err := resp.Decode(&listing); err != nil {
		return nil, wrapNotFound(err, "failed to get listing")
	}
	return &listing, nil
}

// Create inserts a new listing.
func (r *SupabaseListingRepository) Create(ctx context.Context, l *model.NewListing) (*model.Listing, error) {
	resp, err := r.db.From(listingsTable).Single().Insert(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	var listing model.Listing
	if err := resp.Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	return &listing, nil
}

// Delete removes a listing owned by ownerID.
func (r *SupabaseListingRepository) Delete(ctx context.Context, id, ownerID string) error {
	resp, err := r.db.From(listingsTable).Eq("id", id).Eq("user_id", ownerID).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}

	var deleted []json.RawMessage
	if err := resp.Decode(&deleted); err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	if len(deleted) == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus moves a listing from one status to another. ErrNotFound when
// no listing with that id is currently in status from.
func (r *SupabaseListingRepository) SetStatus(ctx context.Context, id, from, to string, reason *string) (*model.Listing, error) {
	patch := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if reason != nil {
		patch["reject_reason"] = *reason
	}

	resp, err := r.db.Service().From(listingsTable).Eq("id", id).Eq("status", from).Update(ctx, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update listing status: %w", err)
	}

	var rows []model.Listing
	if err := resp.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to update listing status: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// IncrementViews calls increment_listing_views. A null result means the
// listing does not exist.
func (r *SupabaseListingRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	resp, err := r.db.RPC(ctx, "increment_listing_views", map[string]string{"listing_id": id})
	if err != nil {
		return 0, fmt.Errorf("failed to increment views: %w", err)
	}

	var views *int64
	if err := resp.Decode(&views); err != nil {
		return 0, wrapNotFound(err, "failed to increment views")
	}
	if views == nil {
		return 0, ErrNotFound
	}
	return *views, nil
}

// ExpireListings calls handle_expired_listings with the service role.
func (r *SupabaseListingRepository) ExpireListings(ctx context.Context) (int64, error) {
	resp, err := r.db.Service().RPC(ctx, "handle_expired_listings", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to expire listings: %w", err)
	}

	var expired *int64
	if err := resp.Decode(&expired); err != nil {
		return 0, fmt.Errorf("failed to expire listings: %w", err)
	}
	if expired == nil {
		// void function
		return 0, nil
	}
	return *expired, nil
}

// sanitizeSearch strips characters with meaning in PostgREST filter syntax.
func sanitizeSearch(q string) string {
	q = strings.TrimSpace(q)
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', '(', ')', '*', '%', '\\', '"', ':':
			return -1
		}
		return r
	}, q)
}

func wrapNotFound(err error, msg string) error {
	if supabase.IsNotFound(err) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Ensure SupabaseListingRepository implements ListingRepository
var _ ListingRepository = (*SupabaseListingRepository)(nil)
