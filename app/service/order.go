package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sow2grow/ms-go-bestowals/app/distribution"
	"github.com/sow2grow/ms-go-bestowals/app/entity"
	"github.com/sow2grow/ms-go-bestowals/app/mapper"
	"github.com/sow2grow/ms-go-bestowals/app/provider"
	"github.com/sow2grow/ms-go-bestowals/app/repository"
	"github.com/sow2grow/ms-go-bestowals/app/types"
)

const (
	holdReasonManualRelease  = "awaiting manual release from holding wallet"
	holdReasonCourierPending = "held pending courier delivery confirmation"
	holdReasonApproval       = "held pending distribution approval"
)

// resolvedWallets is the outcome of mapping the distribution roles onto
// concrete wallet addresses at order-creation time.
type resolvedWallets struct {
	Holding string
	Tithing string
	Sower   string
	Grower  *string
}

// CreateBestowal validates, reserves the idempotency key, snapshots the
// distribution plan, creates the provider order, and caches the response.
// A duplicate submission returns the cached payload without touching the
// provider again.
func (s *BestowalService) CreateBestowal(ctx context.Context, req *types.CreateBestowalRequest) (*types.CreateBestowalResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	if cached, err := s.findCachedResponse(ctx, req.ContributorID, req.IdempotencyKey); cached != nil || err != nil {
		return cached, err
	}

	now := time.Now().UTC()
	reservation := &entity.IdempotencyRecord{
		UserID:         req.ContributorID,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
	}
	if err := s.idempotencyRepo.Reserve(ctx, reservation); err != nil {
		if errors.Is(err, repository.ErrIdempotencyKeyAlreadyExists) {
			// Lost the race to a concurrent duplicate: return whatever the
			// winner cached, or report in-flight if it has not finished yet.
			return s.findCachedResponse(ctx, req.ContributorID, req.IdempotencyKey)
		}
		return nil, err
	}

	resp, err := s.createBestowal(ctx, req, now)
	if err != nil {
		// Free the key so the contributor can safely resubmit.
		_ = s.idempotencyRepo.Delete(ctx, reservation.ID)
		return nil, err
	}

	responseJSON, err := json.Marshal(resp)
	if err != nil {
		_ = s.idempotencyRepo.Delete(ctx, reservation.ID)
		return nil, err
	}
	if err := s.idempotencyRepo.Complete(ctx, reservation.ID, string(responseJSON)); err != nil {
		return nil, err
	}

	return resp, nil
}

func (s *BestowalService) findCachedResponse(ctx context.Context, userID, key string) (*types.CreateBestowalResponse, error) {
	record, err := s.idempotencyRepo.Find(ctx, userID, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	if record.ResponseJSON == "" {
		return nil, ErrRequestInFlight
	}

	var resp types.CreateBestowalResponse
	if err := json.Unmarshal([]byte(record.ResponseJSON), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *BestowalService) createBestowal(ctx context.Context, req *types.CreateBestowalRequest, now time.Time) (*types.CreateBestowalResponse, error) {
	orchard, err := s.orchardRepo.FindByID(ctx, req.OrchardID)
	if err != nil {
		return nil, err
	}
	if orchard == nil {
		return nil, fmt.Errorf("%w: orchard %s", ErrNotFound, req.OrchardID)
	}
	if !orchard.Active() {
		return nil, fmt.Errorf("%w: orchard is %s", ErrInvalidState, orchard.Status)
	}

	providerRaw := req.Provider
	if providerRaw == "" {
		providerRaw = "binance"
	}
	providerCode, err := provider.ParseCode(providerRaw)
	if err != nil {
		return nil, ErrProviderUnsupported
	}
	providerClient, err := s.providerReg.Get(providerCode)
	if err != nil {
		return nil, ErrProviderUnsupported
	}

	growerID := normalizeOptionalString(req.GrowerID)
	wallets, err := s.resolveWallets(ctx, orchard.SowerUserID, growerID)
	if err != nil {
		return nil, err
	}

	snapshot := s.buildSnapshot(orchard, req.AmountCents, wallets, now)

	kind := entity.BestowalKindOrchard
	if orchard.OrchardType == entity.OrchardTypeFullValue {
		kind = entity.BestowalKindProduct
	}

	bestowal := &entity.Bestowal{
		OrderRef:          uuid.NewString(),
		OrchardID:         orchard.ID,
		SowerUserID:       orchard.SowerUserID,
		ContributorUserID: req.ContributorID,
		GrowerUserID:      growerID,
		AmountCents:       req.AmountCents,
		Currency:          orchard.Currency,
		PocketCount:       req.PocketCount,
		Message:           normalizeOptionalString(req.Message),
		PaymentMethod:     providerRaw,
		Provider:          providerCode,
		Status:            entity.BestowalStatusPending,
		Distribution:      snapshot,
		Kind:              kind,
		ReleaseStatus:     entity.ReleaseStatusHeld,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.bestowalRepo.Create(ctx, bestowal); err != nil {
		return nil, err
	}

	expireMinutes := int64(s.distributionCfg.OrderExpiry.Minutes())
	if expireMinutes <= 0 {
		expireMinutes = 30
	}
	orderOutput, err := providerClient.CreateOrder(ctx, &provider.OrderInput{
		OrderRef:      bestowal.OrderRef,
		AmountCents:   bestowal.AmountCents,
		Currency:      bestowal.Currency,
		Description:   orchard.Title,
		ReturnURL:     req.ReturnURL,
		CancelURL:     req.CancelURL,
		ExpireMinutes: expireMinutes,
	})
	if err != nil {
		// The pending bestowal row stays behind with no provider order; the
		// reconcile job never picks it up and it is inert.
		return nil, fmt.Errorf("%w: %s", ErrPaymentProvider, err.Error())
	}

	bestowal.ProviderOrderID = normalizeOptionalString(orderOutput.ProviderOrderID)
	bestowal.CheckoutURL = normalizeOptionalString(orderOutput.CheckoutURL)
	bestowal.UpdatedAt = time.Now().UTC()
	if err := s.bestowalRepo.Update(ctx, bestowal); err != nil {
		return nil, err
	}

	_ = s.transactionRepo.Create(ctx, &entity.PaymentTransaction{
		BestowalID: bestowal.ID,
		Provider:   bestowal.Provider,
		EventType:  "bestowal_created",
		OldStatus:  "",
		NewStatus:  bestowal.Status,
		CreatedAt:  now,
	})

	return &types.CreateBestowalResponse{
		Success:         true,
		BestowalID:      bestowal.OrderRef,
		ProviderOrderID: orderOutput.ProviderOrderID,
		PaymentURL:      orderOutput.CheckoutURL,
		Distribution:    mapper.DistributionToView(snapshot),
	}, nil
}

// resolveWallets maps the distribution roles to wallet addresses. Holding and
// tithing wallets are operator configuration and must exist. The sower falls
// back to the default payee wallet; a sower with neither cannot be paid. The
// grower is best effort: when no wallet is registered the grower share folds
// back into the sower.
func (s *BestowalService) resolveWallets(ctx context.Context, sowerUserID string, growerUserID *string) (*resolvedWallets, error) {
	holding, err := s.walletRepo.FindOrganizationWallet(ctx, entity.WalletPurposeHolding)
	if err != nil {
		return nil, err
	}
	tithing, err := s.walletRepo.FindOrganizationWallet(ctx, entity.WalletPurposeTithing)
	if err != nil {
		return nil, err
	}
	if holding == nil || tithing == nil {
		return nil, fmt.Errorf("%w: holding or tithing wallet is not provisioned", ErrConfiguration)
	}

	sowerWallet, err := s.walletRepo.FindPrimaryUserWallet(ctx, sowerUserID)
	if err != nil {
		return nil, err
	}
	sowerAddress := ""
	if sowerWallet != nil {
		sowerAddress = sowerWallet.Address
	} else {
		fallback, err := s.walletRepo.FindOrganizationWallet(ctx, entity.WalletPurposeDefaultPayee)
		if err != nil {
			return nil, err
		}
		if fallback != nil {
			sowerAddress = fallback.Address
		}
	}
	if sowerAddress == "" {
		return nil, fmt.Errorf("%w: sower %s", ErrWalletResolution, sowerUserID)
	}

	resolved := &resolvedWallets{
		Holding: holding.Address,
		Tithing: tithing.Address,
		Sower:   sowerAddress,
	}

	if growerUserID != nil {
		growerWallet, err := s.walletRepo.FindPrimaryUserWallet(ctx, *growerUserID)
		if err != nil {
			return nil, err
		}
		if growerWallet != nil {
			resolved.Grower = &growerWallet.Address
		}
	}

	return resolved, nil
}

func (s *BestowalService) buildSnapshot(orchard *entity.Orchard, amountCents int64, wallets *resolvedWallets, now time.Time) *entity.DistributionSnapshot {
	hasGrower := wallets.Grower != nil
	split := distribution.ComputeSplit(amountCents, s.distributionCfg.TithingPercent, s.distributionCfg.GrowerPercent, hasGrower)

	mode := entity.DistributionModeManual
	courierRequired := false
	var holdReason *string

	switch {
	case orchard.ProductType == entity.ProductTypeDigital:
		mode = entity.DistributionModeAutomatic
	case orchard.OrchardType == entity.OrchardTypeStandard:
		reason := holdReasonManualRelease
		holdReason = &reason
	case orchard.OrchardType == entity.OrchardTypeFullValue && orchard.CourierCostCents != nil:
		courierRequired = true
		reason := holdReasonCourierPending
		holdReason = &reason
	default:
		reason := holdReasonApproval
		holdReason = &reason
	}

	return &entity.DistributionSnapshot{
		TotalCents:      amountCents,
		Currency:        orchard.Currency,
		HoldingWallet:   wallets.Holding,
		TithingWallet:   wallets.Tithing,
		SowerWallet:     wallets.Sower,
		GrowerWallet:    wallets.Grower,
		TithingCents:    split.TithingCents,
		SowerCents:      split.SowerCents,
		GrowerCents:     split.GrowerCents,
		TithingPercent:  split.TithingPercent,
		SowerPercent:    split.SowerPercent,
		GrowerPercent:   split.GrowerPercent,
		Mode:            mode,
		HoldReason:      holdReason,
		CourierRequired: courierRequired,
		GeneratedAt:     now,
	}
}

// GetBestowal returns the bestowal behind a merchant order reference.
func (s *BestowalService) GetBestowal(ctx context.Context, req *types.GetBestowalRequest) (*entity.Bestowal, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	bestowal, err := s.bestowalRepo.FindByOrderRef(ctx, req.OrderRef)
	if err != nil {
		return nil, err
	}
	if bestowal == nil {
		return nil, fmt.Errorf("%w: bestowal %s", ErrNotFound, req.OrderRef)
	}
	return bestowal, nil
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
