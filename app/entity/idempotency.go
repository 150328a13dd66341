package entity

import "time"

// IdempotencyRecord caches the full success payload of an order creation keyed
// by (user, idempotency key), so duplicate submissions return byte-identical
// responses without creating a second bestowal.
type IdempotencyRecord struct {
	ID             uint64
	UserID         string
	IdempotencyKey string
	ResponseJSON   string
	CreatedAt      time.Time
}
