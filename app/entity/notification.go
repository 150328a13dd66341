package entity

import "time"

const (
	NotificationKindProofOfPayment = "proof_of_payment"
	NotificationKindThankYou       = "thank_you"
	NotificationKindSowerNotice    = "sower_notice"
)

const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// NotificationMessage is an outbox row for best-effort chat messages. Delivery
// runs in a background job and can never block or fail a payment transition.
type NotificationMessage struct {
	ID              uint64
	BestowalID      uint64
	Kind            string
	RecipientUserID string
	SenderUserID    string
	Body            string

	Status        string
	Attempts      int32
	NextAttemptAt *time.Time
	LastError     *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
