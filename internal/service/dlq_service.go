package service

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"
	"app/internal/pgmq"
	"app/internal/repository"
)

// ErrDeadLetterClosed is returned when a dead letter was already replayed
// or discarded.
var ErrDeadLetterClosed = errors.New("dead letter message already handled")

type DLQService interface {
	// Record persists an exhausted publish job for later inspection.
	Record(ctx context.Context, queueName string, messageID int64, payload []byte) error
	List(ctx context.Context, limit int) ([]model.DeadLetterMessage, error)
	// Replay re-enqueues a dead letter onto its original queue.
	Replay(ctx context.Context, id int64) error
	// Discard marks a dead letter as handled without re-enqueueing it.
	Discard(ctx context.Context, id int64) error
}

type dlqService struct {
	repo  repository.DLQRepository
	queue *pgmq.Client
}

func NewDLQService(repo repository.DLQRepository, queue *pgmq.Client) DLQService {
	return &dlqService{repo: repo, queue: queue}
}

func (s *dlqService) Record(ctx context.Context, queueName string, messageID int64, payload []byte) error {
	dbMessage := &model.DeadLetterMessage{
		QueueName: queueName,
		MessageID: fmt.Sprintf("%d", messageID),
		Payload:   payload,
		Status:    model.DLQStatusReceived,
	}
	return s.repo.Create(ctx, dbMessage)
}

func (s *dlqService) List(ctx context.Context, limit int) ([]model.DeadLetterMessage, error) {
	return s.repo.List(ctx, limit)
}

func (s *dlqService) Replay(ctx context.Context, id int64) error {
	message, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if message.Status != model.DLQStatusReceived {
		return ErrDeadLetterClosed
	}
	if err := s.queue.Send(ctx, message.QueueName, message.Payload, 0); err != nil {
		return fmt.Errorf("failed to replay dead letter: %w", err)
	}
	return s.repo.UpdateStatus(ctx, id, model.DLQStatusReplayed)
}

func (s *dlqService) Discard(ctx context.Context, id int64) error {
	message, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if message.Status != model.DLQStatusReceived {
		return ErrDeadLetterClosed
	}
	return s.repo.UpdateStatus(ctx, id, model.DLQStatusDiscarded)
}
