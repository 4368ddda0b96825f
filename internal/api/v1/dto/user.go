package dto

import "time"

// UserCreateDTO is used for incoming signup requests
type UserCreateDTO struct {
	UserID   string `json:"user_id" validate:"required"`
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone,omitempty"`
}

// UserResponseDTO is returned in API responses for users
type UserResponseDTO struct {
	UserID             string     `json:"user_id"`
	FullName           string     `json:"full_name"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone,omitempty"`
	Wallet             int        `json:"wallet"`
	SubscriptionPlan   string     `json:"subscription_plan"`
	SubscriptionStatus string     `json:"subscription_status"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// WalletAdjustDTO is an admin request to manually credit or debit a wallet
type WalletAdjustDTO struct {
	Amount    int    `json:"amount" validate:"required,gt=0"`
	Direction string `json:"direction" validate:"required,oneof=credit debit"`
	Note      string `json:"note,omitempty"`
}
