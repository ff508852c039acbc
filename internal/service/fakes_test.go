package service

import (
	"context"

	"marketplace-rest-api/internal/model"
)

// fakeListingRepo satisfies repository.ListingRepository; tests embed it
// and override what they need.
type fakeListingRepo struct{}

func (fakeListingRepo) List(ctx context.Context, f model.ListingFilter) ([]model.Listing, int64, error) {
	return nil, 0, nil
}
func (fakeListingRepo) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	return nil, nil
}
func (fakeListingRepo) Create(ctx context.Context, l *model.NewListing) (*model.Listing, error) {
	return nil, nil
}
func (fakeListingRepo) Delete(ctx context.Context, id, ownerID string) error { return nil }
func (fakeListingRepo) SetStatus(ctx context.Context, id, from, to string, reason *string) (*model.Listing, error) {
	return nil, nil
}
func (fakeListingRepo) IncrementViews(ctx context.Context, id string) (int64, error) { return 0, nil }
func (fakeListingRepo) ExpireListings(ctx context.Context) (int64, error)            { return 0, nil }
