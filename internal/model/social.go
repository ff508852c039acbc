package model

import "time"

// Follow is a user-to-user follow edge.
type Follow struct {
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Like is a user-to-listing like edge.
type Like struct {
	UserID    string    `json:"user_id"`
	ListingID string    `json:"listing_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
