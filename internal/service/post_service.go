package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"app/internal/config"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrLocationSelectionEmpty is returned when a publish or schedule request
// names no locations.
var ErrLocationSelectionEmpty = errors.New("location_selection_empty")

// PostService owns the post lifecycle: generation, approval, rejection,
// caption edits, scheduling and deletion. Publishing itself lives in
// PublishService.
type PostService interface {
	GenerateImage(ctx context.Context, userID string, req ImageGenerationRequest) (*model.Post, error)
	GenerateVideo(ctx context.Context, userID string, req VideoGenerationRequest) (*model.Post, error)
	Approve(ctx context.Context, postID, userID string) (*model.Post, error)
	Reject(ctx context.Context, postID, userID, reason string) (*model.Post, error)
	EditDescription(ctx context.Context, postID, userID, description string, checkmark *model.Checkmark) (*model.Post, error)
	Schedule(ctx context.Context, postID, userID string, at time.Time, job PublishJob) (*model.Post, error)
	Delete(ctx context.Context, postID, userID string) error
	Get(ctx context.Context, postID, userID string) (*model.Post, error)
	List(ctx context.Context, userID, status string) ([]model.Post, error)
}

type postService struct {
	repo      repository.PostRepository
	wallet    WalletService
	generator GenerationClient
	queue     PublishEnqueuer
	events    pubsub.Publisher
	cfg       *config.Config
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPostService creates a new PostService with a scoped logger.
func NewPostService(repo repository.PostRepository, wallet WalletService, generator GenerationClient, queue PublishEnqueuer, events pubsub.Publisher, cfg *config.Config, logger zerolog.Logger) PostService {
	return &postService{
		repo:      repo,
		wallet:    wallet,
		generator: generator,
		queue:     queue,
		events:    events,
		cfg:       cfg,
		logger:    logger.With().Str("service", "PostService").Logger(),
		now:       time.Now,
	}
}

// GenerateImage runs the image generation flow. Ordering matters: the
// balance is checked up front, the asset is generated, the record is saved,
// and only then is the wallet debited. A debit failure after a saved record
// is logged and reported through the ledger, never by dropping the post.
func (s *postService) GenerateImage(ctx context.Context, userID string, req ImageGenerationRequest) (*model.Post, error) {
	return s.generate(ctx, userID, s.cfg.GenerationImageCost, model.ReasonImageGenerated, func() (*model.Post, error) {
		result, err := s.generator.GenerateImage(ctx, req)
		if err != nil {
			return nil, err
		}
		description := result.Description
		if description == "" {
			description = req.Prompt
		}
		return &model.Post{
			ID:          uuid.NewString(),
			UserID:      userID,
			Kind:        model.PostKindImage,
			AIOutput:    result.OutputURL,
			Description: description,
			Prompt:      req.Prompt,
			LogoURL:     result.LogoURL,
			Status:      model.PostStatusPending,
			Checkmark:   model.Checkmark{Post: true},
		}, nil
	})
}

// GenerateVideo runs the video generation flow with its own cost and the
// longer bounded timeout enforced by the generation client.
func (s *postService) GenerateVideo(ctx context.Context, userID string, req VideoGenerationRequest) (*model.Post, error) {
	return s.generate(ctx, userID, s.cfg.GenerationVideoCost, model.ReasonVideoGenerated, func() (*model.Post, error) {
		result, err := s.generator.GenerateVideo(ctx, req)
		if err != nil {
			return nil, err
		}
		return &model.Post{
			ID:          uuid.NewString(),
			UserID:      userID,
			Kind:        model.PostKindVideo,
			AIOutput:    result.OutputURL,
			Description: req.UserInstruction,
			Prompt:      req.UserInstruction,
			Status:      model.PostStatusPending,
			Checkmark:   model.Checkmark{Post: true},
		}, nil
	})
}

func (s *postService) generate(ctx context.Context, userID string, cost int, reason string, build func() (*model.Post, error)) (*model.Post, error) {
	balance, err := s.wallet.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < cost {
		return nil, repository.ErrInsufficientFunds
	}

	post, err := build()
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Generation failed, no debit recorded")
		return nil, err
	}

	if err := s.repo.CreatePost(ctx, post); err != nil {
		// The asset exists upstream but we have no record of it; without a
		// saved record no debit may happen.
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to persist generated post, skipping debit")
		return nil, err
	}

	if _, err := s.wallet.Debit(ctx, userID, cost, reason, map[string]string{"post_id": post.ID}); err != nil {
		// The post record stays; the ledger shortfall is reported, not
		// treated as fatal to the generated asset.
		s.logger.Warn().Err(err).Str("user_id", userID).Str("post_id", post.ID).Msg("Debit after generation failed; post kept")
	}

	s.publishEvent(ctx, "post.generated", post)
	return post, nil
}

func (s *postService) Approve(ctx context.Context, postID, userID string) (*model.Post, error) {
	post, err := s.repo.GetPost(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.Status == model.PostStatusApproved {
		return post, nil
	}
	if err := post.Approve(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) Reject(ctx context.Context, postID, userID, reason string) (*model.Post, error) {
	post, err := s.repo.GetPost(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if err := post.Reject(reason); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, "post.rejected", post)
	return post, nil
}

func (s *postService) EditDescription(ctx context.Context, postID, userID, description string, checkmark *model.Checkmark) (*model.Post, error) {
	post, err := s.repo.GetPost(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if err := post.EditContent(description, checkmark); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Schedule marks the post scheduled and enqueues a delayed publish job that
// surfaces at the due time. The job carries the location selection and
// access token so the orchestrator can dispatch without the client present.
func (s *postService) Schedule(ctx context.Context, postID, userID string, at time.Time, job PublishJob) (*model.Post, error) {
	if len(job.LocationIDs) == 0 {
		return nil, ErrLocationSelectionEmpty
	}
	post, err := s.repo.GetPost(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := post.Schedule(at, now); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, err
	}

	job.PostID = post.ID
	job.UserID = userID
	job.ScheduledFor = at
	if err := s.queue.Enqueue(ctx, job, at.Sub(now)); err != nil {
		s.logger.Error().Err(err).Str("post_id", post.ID).Msg("Failed to enqueue publish job for scheduled post")
		return nil, err
	}
	return post, nil
}

func (s *postService) Delete(ctx context.Context, postID, userID string) error {
	return s.repo.DeletePost(ctx, postID, userID)
}

func (s *postService) Get(ctx context.Context, postID, userID string) (*model.Post, error) {
	return s.repo.GetPost(ctx, postID, userID)
}

func (s *postService) List(ctx context.Context, userID, status string) ([]model.Post, error) {
	return s.repo.ListPosts(ctx, userID, status)
}

func (s *postService) publishEvent(ctx context.Context, eventType string, post *model.Post) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"type":    eventType,
		"post_id": post.ID,
		"user_id": post.UserID,
		"status":  post.Status,
		"at":      s.now().UTC(),
	})
	if err != nil {
		return
	}
	if _, err := s.events.Publish(ctx, s.cfg.PubSubEventsTopic, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Str("post_id", post.ID).Msg("Failed to publish lifecycle event")
	}
}
