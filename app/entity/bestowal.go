package entity

import "time"

const (
	BestowalStatusPending     = "pending"
	BestowalStatusCompleted   = "completed"
	BestowalStatusFailed      = "failed"
	BestowalStatusExpired     = "expired"
	BestowalStatusDistributed = "distributed"
)

const (
	BestowalKindOrchard = "orchard"
	BestowalKindProduct = "product"
)

const (
	ReleaseStatusHeld     = "held"
	ReleaseStatusReleased = "released"
)

type Bestowal struct {
	ID uint64

	// OrderRef is the merchant-visible order reference passed to the payment
	// provider and echoed back by its webhooks.
	OrderRef string

	OrchardID         string
	SowerUserID       string
	ContributorUserID string
	GrowerUserID      *string

	AmountCents int64
	Currency    string
	PocketCount int32
	Message     *string

	PaymentMethod string
	Provider      int32
	Status        string

	ProviderOrderID *string
	CheckoutURL     *string

	Distribution *DistributionSnapshot

	Kind          string
	ReleaseStatus string
	ReleasedAt    *time.Time
	DistributedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the bestowal can no longer transition.
func (b *Bestowal) Terminal() bool {
	switch b.Status {
	case BestowalStatusDistributed, BestowalStatusFailed, BestowalStatusExpired:
		return true
	default:
		return false
	}
}
