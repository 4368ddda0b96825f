package dto

import (
	"time"

	"app/internal/model"
)

// ImageGenerateDTO is used for incoming image generation requests
type ImageGenerateDTO struct {
	Prompt         string   `json:"prompt" validate:"required"`
	LogoBase64     string   `json:"logo_base64,omitempty"`
	SelectedAssets []string `json:"selected_assets,omitempty"`
}

// VideoGenerateDTO is used for incoming video generation requests
type VideoGenerateDTO struct {
	ProductName     string `json:"product_name" validate:"required"`
	ProductImage    string `json:"product_image" validate:"required"`
	UserInstruction string `json:"user_instruction,omitempty"`
	Size            string `json:"size" validate:"required,oneof=9:16 16:9"`
	Duration        int    `json:"duration" validate:"required,oneof=5 10 15"`
}

// PostRejectDTO carries the mandatory rejection reason
type PostRejectDTO struct {
	Reason string `json:"reason" validate:"required"`
}

// PostEditDTO updates the caption and optionally the checkmark
type PostEditDTO struct {
	Description string           `json:"description" validate:"required"`
	Checkmark   *model.Checkmark `json:"checkmark,omitempty"`
}

// PostScheduleDTO schedules a post for future publishing
type PostScheduleDTO struct {
	ScheduledDate time.Time       `json:"scheduled_date" validate:"required"`
	AccountID     string          `json:"account_id" validate:"required"`
	LocationIDs   []string        `json:"location_ids" validate:"required,min=1"`
	Checkmark     model.Checkmark `json:"checkmark"`
	AccessToken   string          `json:"access_token" validate:"required"`
}

// PostResponseDTO is returned in API responses for posts
type PostResponseDTO struct {
	ID            string               `json:"id"`
	UserID        string               `json:"user_id"`
	Kind          string               `json:"kind"`
	AIOutput      string               `json:"ai_output"`
	Description   string               `json:"description"`
	Prompt        string               `json:"prompt,omitempty"`
	LogoURL       string               `json:"logo_url,omitempty"`
	Status        string               `json:"status"`
	Checkmark     model.Checkmark      `json:"checkmark"`
	Locations     []model.PostLocation `json:"locations"`
	ScheduledDate *time.Time           `json:"scheduled_date,omitempty"`
	RejectReason  *string              `json:"reject_reason,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// NewPostResponseDTO maps a post model to its API representation.
func NewPostResponseDTO(p *model.Post) PostResponseDTO {
	return PostResponseDTO{
		ID:            p.ID,
		UserID:        p.UserID,
		Kind:          p.Kind,
		AIOutput:      p.AIOutput,
		Description:   p.Description,
		Prompt:        p.Prompt,
		LogoURL:       p.LogoURL,
		Status:        p.Status,
		Checkmark:     p.Checkmark,
		Locations:     p.Locations,
		ScheduledDate: p.ScheduledDate,
		RejectReason:  p.RejectReason,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
