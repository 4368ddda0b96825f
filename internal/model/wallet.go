package model

import "time"

// Transaction directions.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// Ledger reason codes.
const (
	ReasonImageGenerated       = "image_generated"
	ReasonVideoGenerated       = "video_generated"
	ReasonPostOnGMB            = "Post-on-GMB"
	ReasonAdminAdjustment      = "admin-adjustment"
	ReasonRefundPostFailed     = "Refund-Post-Failed"
	ReasonSubscriptionPurchase = "subscription-purchase"
)

// WalletTransaction is one append-only ledger entry. The sum of credits
// minus debits for a user reconstructs their wallet balance exactly.
type WalletTransaction struct {
	ID        string            `db:"id" json:"id"`
	UserID    string            `db:"user_id" json:"user_id"`
	Amount    int               `db:"amount" json:"amount"` // always positive
	Direction string            `db:"direction" json:"direction"`
	Reason    string            `db:"reason" json:"reason"`
	Metadata  map[string]string `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}
