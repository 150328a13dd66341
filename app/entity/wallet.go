package entity

import "time"

const (
	WalletPurposeHolding      = "holding"
	WalletPurposeTithing      = "tithing"
	WalletPurposeDefaultPayee = "default_payee"
)

// OrganizationWallet is a fixed, operator-configured wallet.
type OrganizationWallet struct {
	ID       uint64
	Purpose  string
	Address  string
	Currency string
}

// UserWallet is a payout wallet registered by a sower or grower.
type UserWallet struct {
	ID        uint64
	UserID    string
	Address   string
	IsPrimary bool
	CreatedAt time.Time
}

// WalletBalance is the per-user, per-address accounting ledger. Available and
// pending only move through relative-delta updates; TotalEarnedCents never
// decreases.
type WalletBalance struct {
	ID            uint64
	UserID        string
	WalletAddress string

	AvailableCents   int64
	PendingCents     int64
	TotalEarnedCents int64

	CreatedAt time.Time
	UpdatedAt time.Time
}
