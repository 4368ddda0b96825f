package publishing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"app/internal/config"
	"app/internal/model"
	"app/internal/pgmq"
	"app/internal/repository"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// Orchestrator drains the publish queue and dispatches scheduled posts.
type Orchestrator struct {
	cfg      *config.Config
	client   *pgmq.Client
	postRepo repository.PostRepository
	publish  service.PublishService
	dlq      service.DLQService
	logger   zerolog.Logger
}

func NewOrchestrator(cfg *config.Config, client *pgmq.Client, postRepo repository.PostRepository, publish service.PublishService, dlq service.DLQService, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		client:   client,
		postRepo: postRepo,
		publish:  publish,
		dlq:      dlq,
		logger:   logger.With().Str("orchestrator", "publishing").Logger(),
	}
}

// Run starts the publishing orchestrator loop.
func (o *Orchestrator) Run(ctx context.Context) error {
	queue := o.cfg.PublishQueueName
	o.logger.Info().Str("queue", queue).Msg("Starting publishing orchestrator")
	for {
		select {
		case <-ctx.Done():
			o.logger.Info().Msg("Shutting down publishing orchestrator")
			return nil
		default:
		}
		msgs, err := o.client.ReadWithPoll(ctx, queue, o.cfg.PublishPollTimeoutSec, o.cfg.PublishPollMaxMsg)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			o.logger.Error().Err(err).Msg("Error reading publish queue")
			sleepContext(ctx, time.Second)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		msg := msgs[0]
		o.logger.Info().Int64("msg_id", msg.ID).Msg("Received publish job")

		var job service.PublishJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			o.logger.Error().Err(err).Msg("Failed to unmarshal publish job; deleting message")
			o.deleteMessage(ctx, queue, msg.ID)
			continue
		}

		o.process(ctx, queue, msg, job)
	}
}

func (o *Orchestrator) process(ctx context.Context, queue string, msg *pgmq.Message, job service.PublishJob) {
	// Re-validate before dispatch. Posts re-scheduled, already posted or
	// deleted since enqueue make this job a stale no-op.
	post, err := o.postRepo.GetPost(ctx, job.PostID, job.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			o.logger.Info().Str("post_id", job.PostID).Msg("Post gone, dropping stale publish job")
			o.deleteMessage(ctx, queue, msg.ID)
			return
		}
		o.logger.Error().Err(err).Str("post_id", job.PostID).Msg("Failed to load post; will retry")
		sleepContext(ctx, time.Second)
		return
	}
	if post.Status != model.PostStatusScheduled {
		o.logger.Info().Str("post_id", job.PostID).Str("status", post.Status).Msg("Post no longer scheduled, dropping stale publish job")
		o.deleteMessage(ctx, queue, msg.ID)
		return
	}
	if post.ScheduledDate != nil && time.Until(*post.ScheduledDate) > time.Minute {
		// The post was re-scheduled further out after this message was
		// enqueued. Push a fresh delayed message and drop this one.
		delaySec := int(time.Until(*post.ScheduledDate) / time.Second)
		if err := o.client.Send(ctx, queue, msg.Data, delaySec); err != nil {
			o.logger.Error().Err(err).Str("post_id", job.PostID).Msg("Failed to re-enqueue publish job")
			return
		}
		o.deleteMessage(ctx, queue, msg.ID)
		return
	}

	req := service.PublishRequest{
		PostID:      job.PostID,
		UserID:      job.UserID,
		AccountID:   job.AccountID,
		LocationIDs: job.LocationIDs,
		Checkmark:   job.Checkmark,
		AccessToken: job.AccessToken,
	}

	backoff := time.Duration(o.cfg.PublishBackoffInitialSec) * time.Second
	var lastErr error
	for attempt := 1; attempt <= o.cfg.PublishMaxRetries; attempt++ {
		_, err := o.publish.Post(ctx, req)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		if isPermanent(err) {
			o.logger.Error().Err(err).Str("post_id", job.PostID).Msg("Publish job failed permanently")
			break
		}
		o.logger.Error().Err(err).Int("attempt", attempt).Str("post_id", job.PostID).Msg("Publish dispatch failed, retrying")
		if !sleepContext(ctx, backoff) {
			break
		}
		backoff *= 2
		if backoff > time.Duration(o.cfg.PublishBackoffMaxSec)*time.Second {
			backoff = time.Duration(o.cfg.PublishBackoffMaxSec) * time.Second
		}
	}

	if lastErr != nil && ctx.Err() != nil && !isPermanent(lastErr) {
		// Shutdown interrupted the retries. Leave the message in place so
		// the visibility timeout redelivers it on the next run.
		o.logger.Info().Str("post_id", job.PostID).Msg("Shutdown during retry, leaving publish job for redelivery")
		return
	}

	if lastErr != nil {
		dlq := o.cfg.PublishDeadLetterQueueName
		if err := o.client.Send(ctx, dlq, msg.Data, 0); err != nil {
			o.logger.Error().Err(err).Str("dlq", dlq).Msg("Failed to send message to dead-letter queue")
		}
		if err := o.dlq.Record(ctx, queue, msg.ID, msg.Data); err != nil {
			o.logger.Error().Err(err).Msg("Failed to record dead letter")
		}
		if err := o.client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
			o.logger.Error().Err(err).Msg("Error deleting publish message after failure")
		}
		o.logger.Warn().
			Int("attempts", o.cfg.PublishMaxRetries).
			Str("post_id", job.PostID).
			Err(lastErr).
			Msg("Moving publish job to DLQ")
		return
	}

	if err := o.client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
		o.logger.Error().Err(err).Msg("Error deleting publish message")
	}
	o.logger.Info().Str("post_id", job.PostID).Msg("Scheduled post published")
}

func (o *Orchestrator) deleteMessage(ctx context.Context, queue string, msgID int64) {
	if err := o.client.Delete(ctx, queue, []int64{msgID}); err != nil {
		o.logger.Error().Err(err).Int64("msg_id", msgID).Msg("Error deleting publish message")
	}
}

// sleepContext waits for the duration or until ctx is cancelled, and
// reports whether the full duration elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// isPermanent reports whether retrying the job cannot possibly help.
// Retrying those would double up ledger checks for a job that will never
// dispatch, so they go straight to the DLQ.
func isPermanent(err error) bool {
	return errors.Is(err, repository.ErrPostNotFound) ||
		errors.Is(err, repository.ErrInsufficientFunds) ||
		errors.Is(err, model.ErrInvalidTransition) ||
		errors.Is(err, service.ErrLocationSelectionEmpty) ||
		errors.Is(err, service.ErrLocationUnknown) ||
		errors.Is(err, service.ErrLocationNotVerified)
}
