package mapper

import (
	"time"

	"github.com/sow2grow/ms-go-bestowals/app/entity"
	"github.com/sow2grow/ms-go-bestowals/app/types"
)

func BestowalToView(item *entity.Bestowal) *types.BestowalView {
	if item == nil {
		return nil
	}

	return &types.BestowalView{
		BestowalID:      item.OrderRef,
		OrchardID:       item.OrchardID,
		AmountCents:     item.AmountCents,
		Currency:        item.Currency,
		PocketCount:     item.PocketCount,
		Status:          item.Status,
		ReleaseStatus:   item.ReleaseStatus,
		ProviderOrderID: derefString(item.ProviderOrderID),
		PaymentURL:      derefString(item.CheckoutURL),
		Distribution:    DistributionToView(item.Distribution),
		CreatedAt:       item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func DistributionToView(item *entity.DistributionSnapshot) *types.DistributionView {
	if item == nil {
		return nil
	}

	return &types.DistributionView{
		TotalCents:      item.TotalCents,
		Currency:        item.Currency,
		TithingCents:    item.TithingCents,
		SowerCents:      item.SowerCents,
		GrowerCents:     item.GrowerCents,
		Mode:            item.Mode,
		HoldReason:      item.HoldReason,
		CourierRequired: item.CourierRequired,
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
