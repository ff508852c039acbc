package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing statuses. Transitions are enforced by the database.
const (
	ListingPending  = "pending"
	ListingActive   = "active"
	ListingRejected = "rejected"
	ListingExpired  = "expired"
	ListingSold     = "sold"
)

// Listing is a marketplace item owned by a user.
type Listing struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	CategoryID    int64           `json:"category_id"`
	SubcategoryID *int64          `json:"subcategory_id,omitempty"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Location      string          `json:"location,omitempty"`
	Images        []string        `json:"images"`
	Status        string          `json:"status"`
	Views         int64           `json:"views"`
	RejectReason  *string         `json:"reject_reason,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	FormattedPrice string `json:"formatted_price,omitempty"`
}

// NewListing is the insert payload for a listing.
type NewListing struct {
	UserID        string          `json:"user_id"`
	CategoryID    int64           `json:"category_id"`
	SubcategoryID *int64          `json:"subcategory_id,omitempty"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Location      string          `json:"location,omitempty"`
	Images        []string        `json:"images"`
	Status        string          `json:"status"`
}

// ListingFilter narrows a listing browse query.
type ListingFilter struct {
	Query         string
	CategoryID    int64
	SubcategoryID int64
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	Sort          string // newest, price_asc, price_desc, popular
	Limit         int
	Offset        int
}
