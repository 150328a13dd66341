package entity

import "time"

const (
	OrchardStatusActive    = "active"
	OrchardStatusDraft     = "draft"
	OrchardStatusCompleted = "completed"
	OrchardStatusArchived  = "archived"
)

const (
	OrchardTypeStandard  = "standard"
	OrchardTypeFullValue = "full_value"
)

const (
	ProductTypeDigital  = "digital"
	ProductTypePhysical = "physical"
)

// Orchard is a fundraising campaign whose goal is divided into pockets.
type Orchard struct {
	ID          string
	SowerUserID string
	Title       string
	Status      string

	OrchardType string
	ProductType string

	PocketPriceCents int64
	PocketsTotal     int32
	CourierCostCents *int64
	Currency         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *Orchard) Active() bool {
	return o.Status == OrchardStatusActive
}
