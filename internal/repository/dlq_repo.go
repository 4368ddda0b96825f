package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDeadLetterNotFound = errors.New("dead letter message not found")

// DLQRepository records publish jobs that exhausted their retries.
type DLQRepository interface {
	Create(ctx context.Context, message *model.DeadLetterMessage) error
	Get(ctx context.Context, id int64) (*model.DeadLetterMessage, error)
	List(ctx context.Context, limit int) ([]model.DeadLetterMessage, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

type dlqRepository struct {
	pool *pgxpool.Pool
}

func NewDLQRepository(pool *pgxpool.Pool) DLQRepository {
	return &dlqRepository{pool: pool}
}

func (r *dlqRepository) Create(ctx context.Context, message *model.DeadLetterMessage) error {
	const q = `
        INSERT INTO dead_letter_messages (queue_name, message_id, payload, status)
        VALUES ($1, $2, $3, $4)
    `
	_, err := r.pool.Exec(ctx, q, message.QueueName, message.MessageID, message.Payload, message.Status)
	if err != nil {
		return fmt.Errorf("recording dead letter message: %w", err)
	}
	return nil
}

func (r *dlqRepository) Get(ctx context.Context, id int64) (*model.DeadLetterMessage, error) {
	const q = `
        SELECT id, queue_name, message_id, payload, status, created_at
        FROM dead_letter_messages
        WHERE id = $1
    `
	var m model.DeadLetterMessage
	err := r.pool.QueryRow(ctx, q, id).Scan(&m.ID, &m.QueueName, &m.MessageID, &m.Payload, &m.Status, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeadLetterNotFound
		}
		return nil, fmt.Errorf("getting dead letter message: %w", err)
	}
	return &m, nil
}

func (r *dlqRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	const q = `UPDATE dead_letter_messages SET status = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, status)
	if err != nil {
		return fmt.Errorf("updating dead letter status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDeadLetterNotFound
	}
	return nil
}

func (r *dlqRepository) List(ctx context.Context, limit int) ([]model.DeadLetterMessage, error) {
	const q = `
        SELECT id, queue_name, message_id, payload, status, created_at
        FROM dead_letter_messages
        ORDER BY created_at DESC
        LIMIT $1
    `
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("listing dead letter messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.DeadLetterMessage
	for rows.Next() {
		var m model.DeadLetterMessage
		if err := rows.Scan(&m.ID, &m.QueueName, &m.MessageID, &m.Payload, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning dead letter message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
