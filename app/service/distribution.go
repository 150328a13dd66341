package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sow2grow/ms-go-bestowals/app/entity"
	"github.com/sow2grow/ms-go-bestowals/app/provider"
	"github.com/sow2grow/ms-go-bestowals/app/repository"
)

type distributionLeg struct {
	Role          string
	WalletAddress string
	UserID        string
	AmountCents   int64
}

// ExecuteDistribution pays out every non-zero recipient of a completed
// bestowal. The per-role transfer ledger makes the whole call resumable: a
// retry skips legs that already went out, so a partial failure is repaired by
// simply calling again.
func (s *BestowalService) ExecuteDistribution(ctx context.Context, bestowal *entity.Bestowal) error {
	snapshot := bestowal.Distribution
	if snapshot == nil {
		return fmt.Errorf("%w: bestowal %d has no distribution snapshot", ErrInvalidState, bestowal.ID)
	}
	if bestowal.Status == entity.BestowalStatusDistributed {
		return nil
	}
	if bestowal.Status != entity.BestowalStatusCompleted {
		return fmt.Errorf("%w: bestowal %d is %s", ErrInvalidState, bestowal.ID, bestowal.Status)
	}

	providerClient, err := s.providerReg.Get(bestowal.Provider)
	if err != nil {
		return ErrProviderUnsupported
	}

	legs := []distributionLeg{
		{Role: entity.RecipientRoleTithing, WalletAddress: snapshot.TithingWallet, AmountCents: snapshot.TithingCents},
		{Role: entity.RecipientRoleSower, WalletAddress: snapshot.SowerWallet, UserID: bestowal.SowerUserID, AmountCents: snapshot.SowerCents},
	}
	if snapshot.GrowerWallet != nil && snapshot.GrowerCents > 0 && bestowal.GrowerUserID != nil {
		legs = append(legs, distributionLeg{
			Role:          entity.RecipientRoleGrower,
			WalletAddress: *snapshot.GrowerWallet,
			UserID:        *bestowal.GrowerUserID,
			AmountCents:   snapshot.GrowerCents,
		})
	}

	now := time.Now().UTC()
	for _, leg := range legs {
		if leg.AmountCents <= 0 {
			continue
		}
		if err := s.executeLeg(ctx, providerClient, bestowal, leg, now); err != nil {
			return err
		}
	}

	bestowal.Status = entity.BestowalStatusDistributed
	bestowal.DistributedAt = &now
	bestowal.UpdatedAt = now
	if err := s.bestowalRepo.Update(ctx, bestowal); err != nil {
		return err
	}

	_ = s.transactionRepo.Create(ctx, &entity.PaymentTransaction{
		BestowalID: bestowal.ID,
		Provider:   bestowal.Provider,
		EventType:  "distribution_completed",
		OldStatus:  entity.BestowalStatusCompleted,
		NewStatus:  bestowal.Status,
		CreatedAt:  now,
	})

	return nil
}

func (s *BestowalService) executeLeg(ctx context.Context, providerClient provider.Provider, bestowal *entity.Bestowal, leg distributionLeg, now time.Time) error {
	existing, err := s.transferRepo.Find(ctx, bestowal.ID, leg.Role)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	requestID := fmt.Sprintf("%s-%s-%s", bestowal.OrderRef, leg.Role, uuid.NewString())
	output, err := providerClient.Transfer(ctx, &provider.TransferInput{
		RequestID:     requestID,
		WalletAddress: leg.WalletAddress,
		AmountCents:   leg.AmountCents,
		Currency:      bestowal.Currency,
		Remark:        fmt.Sprintf("bestowal %s %s share", bestowal.OrderRef, leg.Role),
	})
	if err != nil {
		return fmt.Errorf("%w: %s transfer: %s", ErrPaymentProvider, leg.Role, err.Error())
	}

	record := &entity.TransferRecord{
		BestowalID:         bestowal.ID,
		RecipientRole:      leg.Role,
		RequestID:          requestID,
		WalletAddress:      leg.WalletAddress,
		AmountCents:        leg.AmountCents,
		ProviderTransferID: normalizeOptionalString(output.ProviderTransferID),
		CreatedAt:          now,
	}
	if err := s.transferRepo.Create(ctx, record); err != nil {
		// A concurrent run recorded the same leg first; the transfer request
		// id dedup on the provider side makes the double issue harmless.
		if errors.Is(err, repository.ErrTransferAlreadyExists) {
			return nil
		}
		return err
	}

	// Org-purpose wallets (tithing) have no per-user ledger row.
	if leg.UserID != "" {
		if err := s.balanceRepo.AddAvailable(ctx, leg.UserID, leg.WalletAddress, leg.AmountCents, now); err != nil {
			s.logger.WithField("order_ref", bestowal.OrderRef).WithError(err).Error("balance credit failed after transfer")
		}
	}

	return nil
}
