package repository

import (
	"context"
	"fmt"

	"marketplace-rest-api/internal/model"
	"marketplace-rest-api/internal/supabase"
)

// SupabaseProfileRepository implements ProfileRepository.
type SupabaseProfileRepository struct {
	db *supabase.Client
}

// NewSupabaseProfileRepository creates a new profile repository.
func NewSupabaseProfileRepository(db *supabase.Client) *SupabaseProfileRepository {
	return &SupabaseProfileRepository{db: db}
}

// GetByID retrieves a profile.
func (r *SupabaseProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	resp, err := r.db.From("profiles").Select("*").Eq("id", id).Single().Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	var profile model.Profile
	if err := resp.Decode(&profile); err != nil {
		return nil, wrapNotFound(err, "failed to get profile")
	}
	return &profile, nil
}

// UpdateAvatar sets the avatar URL on the caller's own profile.
func (r *SupabaseProfileRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) (*model.Profile, error) {
	resp, err := r.db.From("profiles").
		Eq("id", id).
		Update(ctx, map[string]string{"avatar_url": avatarURL})
	if err != nil {
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}

	var rows []model.Profile
	if err := resp.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// Search matches username, full name or email. It runs with the service
// role because it is only exposed to admins.
func (r *SupabaseProfileRepository) Search(ctx context.Context, query string, limit int) ([]model.Profile, error) {
	term := sanitizeSearch(query)
	if term == "" {
		return []model.Profile{}, nil
	}
	pattern := "*" + term + "*"

	resp, err := r.db.Service().From("profiles").
		Select("id,username,full_name,email,avatar_url,role,created_at").
		Or(fmt.Sprintf("username.ilike.%[1]s,full_name.ilike.%[1]s,email.ilike.%[1]s", pattern)).
		Order("username", true).
		Limit(limit).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}

	profiles := []model.Profile{}
	if err := resp.Decode(&profiles); err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}
	return profiles, nil
}

// IsAdmin reports whether the profile has the admin role.
func (r *SupabaseProfileRepository) IsAdmin(ctx context.Context, id string) (bool, error) {
	resp, err := r.db.Service().From("profiles").Select("role").Eq("id", id).Single().Execute(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}

	var profile model.Profile
	if err := resp.Decode(&profile); err != nil {
		if supabase.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return profile.IsAdmin(), nil
}

// Ensure SupabaseProfileRepository implements ProfileRepository
var _ ProfileRepository = (*SupabaseProfileRepository)(nil)
