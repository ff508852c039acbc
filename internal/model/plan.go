package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a subscription tier.
type Plan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Interval     string          `json:"interval"`
	ListingLimit int             `json:"listing_limit"`
	Features     []string        `json:"features"`
	IsActive     bool            `json:"is_active"`

	FormattedPrice string `json:"formatted_price,omitempty"`
}

// Subscription links a user to a plan.
type Subscription struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	PlanID           string     `json:"plan_id"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	Plan             *Plan      `json:"plan,omitempty"`
}
