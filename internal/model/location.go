package model

import "time"

// Location is a read-only projection of a Google Business Profile location.
// IsVerified is derived from the Voice of Merchant state.
type Location struct {
	LocationID string `json:"location_id"`
	AccountID  string `json:"account_id"`
	Title      string `json:"title"`
	Address    string `json:"address"`
	WebsiteURL string `json:"website_url,omitempty"`
	IsVerified bool   `json:"is_verified"`
}

// LocationProjection is the cached list of locations for one account.
type LocationProjection struct {
	AccountID string     `json:"account_id"`
	Locations []Location `json:"locations"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Account is a read-only projection of a Business Profile account.
type Account struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
}
