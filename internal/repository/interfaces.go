package repository

import (
	"context"
	"errors"

	"marketplace-rest-api/internal/model"
)

// ErrNotFound is returned when the requested row does not exist or is not
// visible to the caller under row-level security.
var ErrNotFound = errors.New("not found")

// CategoryRepository defines category data access methods.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListSubcategories(ctx context.Context, categoryID int64) ([]model.Subcategory, error)
}

// ListingRepository defines listing data access methods.
type ListingRepository interface {
	// List returns active listings matching filter and the total match count.
	List(ctx context.Context, filter model.ListingFilter) ([]model.Listing, int64, error)

	GetByID(ctx context.Context, id string) (*model.Listing, error)

	// Create inserts a listing owned by l.UserID.
	Create(ctx context.Context, l *model.NewListing) (*model.Listing, error)

	// Delete removes a listing owned by ownerID. ErrNotFound when nothing matched.
	Delete(ctx context.Context, id, ownerID string) error

	// SetStatus moves a listing from one status to another.
	SetStatus(ctx context.Context, id, from, to string, reason *string) (*model.Listing, error)

	// IncrementViews bumps the stored view counter and returns the new value.
	IncrementViews(ctx context.Context, id string) (int64, error)

	// ExpireListings runs the server-side expiry sweep and returns how many rows it touched.
	ExpireListings(ctx context.Context) (int64, error)
}

// ProfileRepository defines profile data access methods.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (*model.Profile, error)
	Search(ctx context.Context, query string, limit int) ([]model.Profile, error)
	IsAdmin(ctx context.Context, id string) (bool, error)
}

// ConversationRepository defines messaging data access methods.
type ConversationRepository interface {
	ListForUser(ctx context.Context, userID string) ([]model.Conversation, error)
	GetByID(ctx context.Context, id string) (*model.Conversation, error)
	FindOrCreate(ctx context.Context, listingID, buyerID, sellerID string) (*model.Conversation, bool, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	SendMessage(ctx context.Context, conversationID, senderID, content string) (*model.Message, error)
}

// TransactionRepository defines payment data access methods.
type TransactionRepository interface {
	GetByID(ctx context.Context, id string) (*model.Transaction, error)
}

// SocialRepository defines follow/like data access methods.
// Duplicate follows/likes and missing edges on removal are not errors.
type SocialRepository interface {
	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) error
	FollowerCount(ctx context.Context, userID string) (int64, error)
	LikeListing(ctx context.Context, userID, listingID string) error
	UnlikeListing(ctx context.Context, userID, listingID string) error
}

// PlanRepository defines subscription data access methods.
type PlanRepository interface {
	ListActive(ctx context.Context) ([]model.Plan, error)
	// CurrentSubscription returns nil, nil when the user has none.
	CurrentSubscription(ctx context.Context, userID string) (*model.Subscription, error)
}

// ReviewRepository defines review data access methods.
type ReviewRepository interface {
	CountForUser(ctx context.Context, userID string) (int64, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]model.Review, error)
}

// AuditRepository stores admin audit log entries.
type AuditRepository interface {
	Insert(ctx context.Context, entry *model.AuditLogEntry) error
	List(ctx context.Context, limit, offset int) ([]model.AuditLogEntry, int64, error)
	Close() error
}
