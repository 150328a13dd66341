package entity

import "time"

// PaymentTransaction is an audit row for every provider event applied to a
// bestowal, including rejected ones.
type PaymentTransaction struct {
	ID         uint64
	BestowalID uint64
	Provider   int32
	EventType  string

	OldStatus string
	NewStatus string

	ReportedAmountCents *int64
	PayloadJSON         *string

	CreatedAt time.Time
}
