package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"app/internal/config"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var (
	// ErrDispatchFailed is returned when the publishing webhook call fails.
	// By then the reserved coins have already been refunded.
	ErrDispatchFailed = errors.New("dispatch_failed")
	// ErrLocationNotVerified is returned when a selected location lacks
	// Voice of Merchant and cannot publish content.
	ErrLocationNotVerified = errors.New("location_not_verified")
	// ErrLocationUnknown is returned when a selected location is not part
	// of the account.
	ErrLocationUnknown = errors.New("location_unknown")
)

// LocationDirectory resolves the verified-location projection for an
// account. Backed by the Business Profile gateway through the cache.
type LocationDirectory interface {
	Locations(ctx context.Context, accountID, accessToken string) ([]model.Location, error)
}

// PublishRequest is one multi-location publish action.
type PublishRequest struct {
	PostID      string
	UserID      string
	AccountID   string
	LocationIDs []string
	Checkmark   model.Checkmark
	AccessToken string
}

// PublishService posts an approved or scheduled record to a set of
// locations in one webhook dispatch, reserving coins before the dispatch
// and refunding them if it fails.
type PublishService interface {
	Post(ctx context.Context, req PublishRequest) (*model.Post, error)
}

type publishService struct {
	repo      repository.PostRepository
	wallet    WalletService
	directory LocationDirectory
	events    pubsub.Publisher
	cfg       *config.Config
	client    *http.Client
	logger    zerolog.Logger
}

// NewPublishService creates a new PublishService with a scoped logger.
func NewPublishService(repo repository.PostRepository, wallet WalletService, directory LocationDirectory, events pubsub.Publisher, cfg *config.Config, logger zerolog.Logger) PublishService {
	return &publishService{
		repo:      repo,
		wallet:    wallet,
		directory: directory,
		events:    events,
		cfg:       cfg,
		client:    &http.Client{Timeout: time.Duration(cfg.PublishWebhookTimeoutSec) * time.Second},
		logger:    logger.With().Str("service", "PublishService").Logger(),
	}
}

func (s *publishService) Post(ctx context.Context, req PublishRequest) (*model.Post, error) {
	if len(req.LocationIDs) == 0 {
		return nil, ErrLocationSelectionEmpty
	}
	post, err := s.repo.GetPost(ctx, req.PostID, req.UserID)
	if err != nil {
		return nil, err
	}
	if !post.CanTransition(model.PostStatusPosted) {
		return nil, model.ErrInvalidTransition
	}

	candidates, err := s.resolveLocations(ctx, req)
	if err != nil {
		return nil, err
	}

	// Re-posting charges only for locations not already published. A full
	// overlap is a charge-free no-op.
	newLocations := post.UnpostedLocations(candidates)
	if len(newLocations) == 0 {
		s.logger.Info().Str("post_id", post.ID).Msg("All selected locations already posted, nothing to dispatch")
		return post, nil
	}

	cost := len(newLocations) * s.cfg.PerLocationCost
	meta := map[string]string{
		"post_id":   post.ID,
		"locations": strconv.Itoa(len(newLocations)),
	}

	// Reserve-then-spend: debit before dispatch, refund on failure.
	if _, err := s.wallet.Debit(ctx, req.UserID, cost, model.ReasonPostOnGMB, meta); err != nil {
		return nil, err
	}

	if err := s.dispatch(ctx, post, req, newLocations); err != nil {
		refundMeta := map[string]string{
			"post_id":    post.ID,
			"refund_for": model.ReasonPostOnGMB,
			"locations":  strconv.Itoa(len(newLocations)),
		}
		if _, creditErr := s.wallet.Credit(ctx, req.UserID, cost, model.ReasonRefundPostFailed, refundMeta); creditErr != nil {
			// The refund itself failing leaves the ledger short; it is loud
			// in the logs and caught by reconciliation.
			s.logger.Error().Err(creditErr).Str("post_id", post.ID).Int("amount", cost).Msg("Compensating refund failed after dispatch failure")
		}
		return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	if err := post.MarkPosted(newLocations); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePost(ctx, post); err != nil {
		// Dispatch succeeded but the record is stale; surface the error so
		// the caller can retry the (idempotent) update path.
		s.logger.Error().Err(err).Str("post_id", post.ID).Msg("Failed to persist post after successful dispatch")
		return nil, err
	}

	s.publishEvent(ctx, post, len(newLocations))
	return post, nil
}

func (s *publishService) resolveLocations(ctx context.Context, req PublishRequest) ([]model.PostLocation, error) {
	known, err := s.directory.Locations(ctx, req.AccountID, req.AccessToken)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Location, len(known))
	for _, loc := range known {
		byID[loc.LocationID] = loc
	}

	var out []model.PostLocation
	for _, id := range req.LocationIDs {
		loc, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLocationUnknown, id)
		}
		if !loc.IsVerified {
			return nil, fmt.Errorf("%w: %s", ErrLocationNotVerified, id)
		}
		out = append(out, model.PostLocation{
			LocationID: loc.LocationID,
			AccountID:  loc.AccountID,
			Name:       loc.Title,
			Address:    loc.Address,
			BookURL:    loc.WebsiteURL,
		})
	}
	return out, nil
}

type dispatchLocation struct {
	City     string `json:"city"`
	CityName string `json:"cityName"`
	BookURL  string `json:"bookUrl"`
}

type dispatchPayload struct {
	Account      string             `json:"account"`
	LocationData []dispatchLocation `json:"locationData"`
	Output       string             `json:"output"`
	Description  string             `json:"description"`
	AccessToken  string             `json:"accessToken"`
	Checkmark    model.Checkmark    `json:"checkmark"`
}

// dispatch sends one webhook request carrying the whole batch. The call is
// atomic from this system's point of view: any non-2xx answer fails the
// batch as a unit.
func (s *publishService) dispatch(ctx context.Context, post *model.Post, req PublishRequest, locations []model.PostLocation) error {
	payload := dispatchPayload{
		Account:     req.AccountID,
		Output:      post.AIOutput,
		Description: post.Description,
		AccessToken: req.AccessToken,
		Checkmark:   req.Checkmark,
	}
	for _, loc := range locations {
		payload.LocationData = append(payload.LocationData, dispatchLocation{
			City:     loc.LocationID,
			CityName: loc.Name,
			BookURL:  loc.BookURL,
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling dispatch payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.PublishWebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating dispatch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("calling publishing webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		s.logger.Error().Int("status_code", resp.StatusCode).Str("error_body", string(respBody)).Str("post_id", post.ID).Msg("Publishing webhook returned error")
		return fmt.Errorf("publishing webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *publishService) publishEvent(ctx context.Context, post *model.Post, locationCount int) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"type":      "post.posted",
		"post_id":   post.ID,
		"user_id":   post.UserID,
		"locations": locationCount,
		"at":        time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if _, err := s.events.Publish(ctx, s.cfg.PubSubEventsTopic, payload); err != nil {
		s.logger.Warn().Err(err).Str("post_id", post.ID).Msg("Failed to publish lifecycle event")
	}
}
