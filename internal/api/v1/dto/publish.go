package dto

import "app/internal/model"

// PostPublishDTO is used for immediate multi-location publish requests
type PostPublishDTO struct {
	AccountID   string          `json:"account_id" validate:"required"`
	LocationIDs []string        `json:"location_ids" validate:"required,min=1"`
	Checkmark   model.Checkmark `json:"checkmark"`
	AccessToken string          `json:"access_token" validate:"required"`
}

// GoogleConnectDTO carries the refresh token obtained from the frontend's
// OAuth consent flow.
type GoogleConnectDTO struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// GoogleConnectionStatusDTO reports whether the user has a stored
// Google refresh token.
type GoogleConnectionStatusDTO struct {
	Connected bool `json:"connected"`
}

// LocationResponseDTO is one Business Profile location in API responses
type LocationResponseDTO struct {
	LocationID string `json:"location_id"`
	AccountID  string `json:"account_id"`
	Title      string `json:"title"`
	Address    string `json:"address"`
	WebsiteURL string `json:"website_url,omitempty"`
	IsVerified bool   `json:"is_verified"`
}

// AccountResponseDTO is one Business Profile account in API responses
type AccountResponseDTO struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
}
