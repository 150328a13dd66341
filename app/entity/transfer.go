package entity

import "time"

// TransferRecord is written before each outbound recipient transfer and checked
// on retry, making a repeated distribution run skip transfers that already
// went out. Unique on (bestowal id, recipient role).
type TransferRecord struct {
	ID            uint64
	BestowalID    uint64
	RecipientRole string
	RequestID     string
	WalletAddress string
	AmountCents   int64

	ProviderTransferID *string
	CreatedAt          time.Time
}
