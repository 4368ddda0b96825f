package dto

import "time"

// DeadLetterResponseDTO is one dead-lettered publish job in API responses
type DeadLetterResponseDTO struct {
	ID        int64     `json:"id"`
	QueueName string    `json:"queue_name"`
	MessageID string    `json:"message_id"`
	Payload   string    `json:"payload"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
