package model

import "time"

// Dead letter message statuses.
const (
	DLQStatusReceived  = "received"
	DLQStatusReplayed  = "replayed"
	DLQStatusDiscarded = "discarded"
)

// DeadLetterMessage records a publish job that exhausted its retries.
type DeadLetterMessage struct {
	ID        int64     `db:"id" json:"id"`
	QueueName string    `db:"queue_name" json:"queue_name"`
	MessageID string    `db:"message_id" json:"message_id"`
	Payload   []byte    `db:"payload" json:"payload"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
