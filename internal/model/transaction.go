package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a payment for a listing. Status is owned by the payment provider webhook.
type Transaction struct {
	ID        string          `json:"id"`
	ListingID string          `json:"listing_id"`
	BuyerID   string          `json:"buyer_id"`
	SellerID  string          `json:"seller_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PaymentStatus is the polled view of a transaction.
type PaymentStatus struct {
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
}
