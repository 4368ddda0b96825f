package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/pgmq"
)

// PublishJob is the payload carried through the publish queue for a
// scheduled post. The orchestrator re-validates the post before dispatch,
// so a stale job (post re-scheduled, already posted or deleted) is a no-op.
type PublishJob struct {
	PostID       string          `json:"post_id"`
	UserID       string          `json:"user_id"`
	AccountID    string          `json:"account_id"`
	LocationIDs  []string        `json:"location_ids"`
	Checkmark    model.Checkmark `json:"checkmark"`
	AccessToken  string          `json:"access_token"`
	ScheduledFor time.Time       `json:"scheduled_for"`
}

// PublishEnqueuer queues publish jobs for later dispatch.
type PublishEnqueuer interface {
	Enqueue(ctx context.Context, job PublishJob, delay time.Duration) error
}

// PgmqPublishQueue is the pgmq-backed PublishEnqueuer. Delays map onto
// pgmq's visibility delay so the job surfaces at the post's due time.
type PgmqPublishQueue struct {
	client *pgmq.Client
	queue  string
}

// NewPgmqPublishQueue creates a PublishEnqueuer over the given queue.
func NewPgmqPublishQueue(client *pgmq.Client, queue string) *PgmqPublishQueue {
	return &PgmqPublishQueue{client: client, queue: queue}
}

func (q *PgmqPublishQueue) Enqueue(ctx context.Context, job PublishJob, delay time.Duration) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling publish job: %w", err)
	}
	delaySec := int(delay / time.Second)
	if delaySec < 0 {
		delaySec = 0
	}
	return q.client.Send(ctx, q.queue, payload, delaySec)
}
