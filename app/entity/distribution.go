package entity

import "time"

const (
	DistributionModeAutomatic = "automatic"
	DistributionModeManual    = "manual"
)

const (
	RecipientRoleTithing = "tithing"
	RecipientRoleSower   = "sower"
	RecipientRoleGrower  = "grower"
)

// DistributionSnapshot is the point-in-time plan for how one bestowal's funds
// split across recipients. It is built once at order creation and never
// recomputed; only ProofSentAt and ManualReleaseAt are set afterwards, each
// exactly once.
type DistributionSnapshot struct {
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`

	HoldingWallet string  `json:"holding_wallet"`
	TithingWallet string  `json:"tithing_wallet"`
	SowerWallet   string  `json:"sower_wallet"`
	GrowerWallet  *string `json:"grower_wallet,omitempty"`

	TithingCents int64 `json:"tithing_cents"`
	SowerCents   int64 `json:"sower_cents"`
	GrowerCents  int64 `json:"grower_cents"`

	TithingPercent float64 `json:"tithing_percent"`
	SowerPercent   float64 `json:"sower_percent"`
	GrowerPercent  float64 `json:"grower_percent"`

	Mode            string  `json:"mode"`
	HoldReason      *string `json:"hold_reason,omitempty"`
	CourierRequired bool    `json:"courier_required"`

	ProofSentAt     *time.Time `json:"proof_sent_at,omitempty"`
	ManualReleaseAt *time.Time `json:"manual_release_at,omitempty"`
	GeneratedAt     time.Time  `json:"generated_at"`
}

func (d *DistributionSnapshot) Automatic() bool {
	return d.Mode == DistributionModeAutomatic
}
