package entity

import "time"

const (
	WebhookEventStatusProcessed = "processed"
	WebhookEventStatusRejected  = "rejected"
)

// WebhookEvent is the dedup record for one provider webhook delivery, keyed by
// (provider, webhook id). Inserting it is the idempotency gate: a duplicate-key
// error means the delivery was already handled.
type WebhookEvent struct {
	ID          uint64
	Provider    int32
	WebhookID   string
	EventType   string
	PayloadHash string
	PayloadJSON string
	Status      string
	Error       *string
	CreatedAt   time.Time
}
