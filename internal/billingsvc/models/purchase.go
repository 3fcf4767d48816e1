package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PurchaseStatusPaid = "PAID"

	AccessGranted = "ACCESS_GRANTED"
	AccessDenied  = "ACCESS_DENIED"
)

// UnlockPrice is the fixed one-time charge for a game.
var UnlockPrice = decimal.NewFromInt(1)

type Purchase struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	GameID        string          `json:"game_id"`
	PaymentMethod string          `json:"payment_method"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AccessResult is the decision returned for every access and charge request.
type AccessResult struct {
	Status      string `json:"status"`
	DeployedURL string `json:"deployed_url"`
}

// PurchasedGame is one row of a user's library listing.
type PurchasedGame struct {
	GameID      string `json:"game_id"`
	DeployedURL string `json:"deployed_url"`
}
