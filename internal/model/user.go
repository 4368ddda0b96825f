package model

import "time"

// Subscription plans available for purchase.
const (
	PlanFree     = "Free"
	PlanBasic    = "Basic"
	PlanStandard = "Standard"
	PlanPremium  = "Premium"
)

// User represents a user in the system. Wallet holds the denormalized coin
// balance; the wallet_transactions ledger is authoritative.
type User struct {
	UserID   string `db:"user_id" json:"user_id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
	Phone    string `db:"phone" json:"phone"`
	Wallet   int    `db:"wallet" json:"wallet"`

	SubscriptionPlan      string     `db:"subscription_plan" json:"subscription_plan"`
	SubscriptionStatus    string     `db:"subscription_status" json:"subscription_status"`
	SubscriptionDate      *time.Time `db:"subscription_date" json:"subscription_date,omitempty"`
	SubscriptionExpiry    *time.Time `db:"subscription_expiry" json:"subscription_expiry,omitempty"`
	SubscriptionPaymentID *string    `db:"subscription_payment_id" json:"subscription_payment_id,omitempty"`
	SubscriptionOrderID   *string    `db:"subscription_order_id" json:"subscription_order_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
