package model

import (
	"errors"
	"time"
)

// Post statuses.
const (
	PostStatusPending   = "pending"
	PostStatusApproved  = "approved"
	PostStatusRejected  = "rejected"
	PostStatusScheduled = "scheduled"
	PostStatusPosted    = "posted"
)

// Post kinds, matching the generation flow that produced the asset.
const (
	PostKindImage = "image"
	PostKindVideo = "video"
)

var (
	ErrInvalidTransition  = errors.New("invalid_post_transition")
	ErrRejectReasonNeeded = errors.New("reject_reason_required")
	ErrScheduleDatePast   = errors.New("schedule_date_in_past")
	ErrPostContentLocked  = errors.New("post_content_locked")
)

// Checkmark selects which GMB surfaces receive the asset.
type Checkmark struct {
	Post  bool `json:"post"`
	Photo bool `json:"photo"`
}

// PostLocation is one target location attached to a post.
type PostLocation struct {
	LocationID string `json:"location_id"`
	AccountID  string `json:"account_id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	BookURL    string `json:"book_url,omitempty"`
	IsPosted   bool   `json:"is_posted"`
}

// Post is one AI-generated creative unit moving through the approval and
// publishing lifecycle.
type Post struct {
	ID            string         `db:"id" json:"id"`
	UserID        string         `db:"user_id" json:"user_id"`
	Kind          string         `db:"kind" json:"kind"`
	AIOutput      string         `db:"ai_output" json:"ai_output"` // generated asset URL
	Description   string         `db:"description" json:"description"`
	Prompt        string         `db:"prompt" json:"prompt"`
	LogoURL       string         `db:"logo_url" json:"logo_url,omitempty"`
	Status        string         `db:"status" json:"status"`
	Checkmark     Checkmark      `db:"checkmark" json:"checkmark"`
	Locations     []PostLocation `db:"locations" json:"locations"`
	ScheduledDate *time.Time     `db:"scheduled_date" json:"scheduled_date,omitempty"`
	RejectReason  *string        `db:"reject_reason" json:"reject_reason,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// transitions is the closed set of legal status moves. Posting from posted
// covers the re-post flow (additional locations only).
var transitions = map[string][]string{
	PostStatusPending:   {PostStatusApproved, PostStatusRejected},
	PostStatusApproved:  {PostStatusScheduled, PostStatusPosted},
	PostStatusScheduled: {PostStatusPosted},
	PostStatusPosted:    {PostStatusPosted, PostStatusScheduled},
	PostStatusRejected:  {},
}

// CanTransition reports whether moving from the post's current status to
// the target status is legal.
func (p *Post) CanTransition(to string) bool {
	for _, t := range transitions[p.Status] {
		if t == to {
			return true
		}
	}
	return false
}

// Approve moves a pending post to approved. Approving an approved post is
// a no-op.
func (p *Post) Approve() error {
	if p.Status == PostStatusApproved {
		return nil
	}
	if !p.CanTransition(PostStatusApproved) {
		return ErrInvalidTransition
	}
	p.Status = PostStatusApproved
	return nil
}

// Reject moves a pending post to rejected, storing the reason.
func (p *Post) Reject(reason string) error {
	if reason == "" {
		return ErrRejectReasonNeeded
	}
	if !p.CanTransition(PostStatusRejected) {
		return ErrInvalidTransition
	}
	p.Status = PostStatusRejected
	p.RejectReason = &reason
	return nil
}

// Schedule moves an approved (or posted, for re-scheduling a re-post) post
// to scheduled at the given future time.
func (p *Post) Schedule(at, now time.Time) error {
	if !at.After(now) {
		return ErrScheduleDatePast
	}
	if !p.CanTransition(PostStatusScheduled) {
		return ErrInvalidTransition
	}
	p.Status = PostStatusScheduled
	p.ScheduledDate = &at
	return nil
}

// MarkPosted finalizes a successful dispatch, appending the newly published
// locations (deduped by location ID) and clearing any schedule.
func (p *Post) MarkPosted(published []PostLocation) error {
	if !p.CanTransition(PostStatusPosted) {
		return ErrInvalidTransition
	}
	for _, loc := range published {
		loc.IsPosted = true
		if i := p.locationIndex(loc.LocationID); i >= 0 {
			p.Locations[i] = loc
			continue
		}
		p.Locations = append(p.Locations, loc)
	}
	p.Status = PostStatusPosted
	p.ScheduledDate = nil
	return nil
}

// EditContent updates the caption (and optionally the checkmark) without
// changing status. Content is locked once the post is rejected or posted.
func (p *Post) EditContent(description string, checkmark *Checkmark) error {
	if p.Status == PostStatusPosted || p.Status == PostStatusRejected {
		return ErrPostContentLocked
	}
	p.Description = description
	if checkmark != nil {
		p.Checkmark = *checkmark
	}
	return nil
}

// UnpostedLocations filters the candidate locations down to those not yet
// published for this post.
func (p *Post) UnpostedLocations(candidates []PostLocation) []PostLocation {
	var out []PostLocation
	for _, c := range candidates {
		if i := p.locationIndex(c.LocationID); i >= 0 && p.Locations[i].IsPosted {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (p *Post) locationIndex(locationID string) int {
	for i, l := range p.Locations {
		if l.LocationID == locationID {
			return i
		}
	}
	return -1
}
