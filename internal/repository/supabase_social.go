package repository

import (
	"context"
	"fmt"

	"marketplace-rest-api/internal/supabase"
)

// SupabaseSocialRepository implements SocialRepository.
type SupabaseSocialRepository struct {
	db *supabase.Client
}

// NewSupabaseSocialRepository creates a new follow/like repository.
func NewSupabaseSocialRepository(db *supabase.Client) *SupabaseSocialRepository {
	return &SupabaseSocialRepository{db: db}
}

// Follow records followerID following followingID.
func (r *SupabaseSocialRepository) Follow(ctx context.Context, followerID, followingID string) error {
	return r.insertEdge(ctx, "follows", map[string]string{
		"follower_id":  followerID,
		"following_id": followingID,
	})
}

// Unfollow removes the follow edge if present.
func (r *SupabaseSocialRepository) Unfollow(ctx context.Context, followerID, followingID string) error {
	resp, err := r.db.From("follows").
		Eq("follower_id", followerID).
		Eq("following_id", followingID).
		Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to unfollow: %w", err)
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("failed to unfollow: %w", err)
	}
	return nil
}

// FollowerCount counts the followers of userID.
func (r *SupabaseSocialRepository) FollowerCount(ctx context.Context, userID string) (int64, error) {
	resp, err := r.db.From("follows").
		Select("follower_id").
		Eq("following_id", userID).
		Count("exact").
		Limit(1).
		Execute(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	if err := resp.Err(); err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	if total := resp.Total(); total > 0 {
		return total, nil
	}
	return 0, nil
}

// LikeListing records userID liking listingID.
func (r *SupabaseSocialRepository) LikeListing(ctx context.Context, userID, listingID string) error {
	return r.insertEdge(ctx, "listing_likes", map[string]string{
		"user_id":    userID,
		"listing_id": listingID,
	})
}

// UnlikeListing removes the like if present.
func (r *SupabaseSocialRepository) UnlikeListing(ctx context.Context, userID, listingID string) error {
	resp, err := r.db.From("listing_likes").
		Eq("user_id", userID).
		Eq("listing_id", listingID).
		Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to unlike: %w", err)
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("failed to unlike: %w", err)
	}
	return nil
}

// insertEdge inserts a row where a unique violation means "already there".
// A foreign-key violation means the target does not exist.
func (r *SupabaseSocialRepository) insertEdge(ctx context.Context, table string, row map[string]string) error {
	resp, err := r.db.From(table).Insert(ctx, row)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	err = resp.Err()
	switch {
	case err == nil, supabase.IsConflict(err):
		return nil
	case supabase.IsForeignKey(err):
		return ErrNotFound
	default:
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
}

// Ensure SupabaseSocialRepository implements SocialRepository
var _ SocialRepository = (*SupabaseSocialRepository)(nil)
