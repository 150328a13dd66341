package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sow2grow/ms-go-bestowals/app/auth"
	"github.com/sow2grow/ms-go-bestowals/app/entity"
	"github.com/sow2grow/ms-go-bestowals/app/repository"
	"github.com/sow2grow/ms-go-bestowals/app/types"
)

const (
	escrowStatusReleased        = "released"
	escrowStatusAlreadyReleased = "already released"
)

// ReleaseEscrow moves a held sower share from pending to available. The
// release is single use: the conditional status flip decides a winner among
// concurrent calls and every later call is a no-op.
func (s *BestowalService) ReleaseEscrow(ctx context.Context, req *types.EscrowReleaseRequest) (*types.EscrowReleaseResponse, error) {
	switch req.ActorRole {
	case auth.RoleCourier, auth.RoleGosat, auth.RoleAdmin:
	default:
		return nil, ErrForbidden
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	bestowal, err := s.bestowalRepo.FindByID(ctx, req.BestowalType, req.BestowalID)
	if err != nil {
		return nil, err
	}
	if bestowal == nil {
		return nil, fmt.Errorf("%w: bestowal %d", ErrNotFound, req.BestowalID)
	}

	if bestowal.ReleaseStatus == entity.ReleaseStatusReleased {
		return &types.EscrowReleaseResponse{Success: true, Status: escrowStatusAlreadyReleased}, nil
	}

	snapshot := bestowal.Distribution
	if snapshot == nil {
		return nil, fmt.Errorf("%w: bestowal %d has no distribution snapshot", ErrInvalidState, bestowal.ID)
	}
	if bestowal.Status != entity.BestowalStatusCompleted && bestowal.Status != entity.BestowalStatusDistributed {
		return nil, fmt.Errorf("%w: bestowal %d is %s, funds are not held", ErrInvalidState, bestowal.ID, bestowal.Status)
	}

	now := time.Now().UTC()
	won, err := s.bestowalRepo.MarkReleased(ctx, bestowal.Kind, bestowal.ID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return &types.EscrowReleaseResponse{Success: true, Status: escrowStatusAlreadyReleased}, nil
	}

	if snapshot.SowerCents > 0 {
		err := s.balanceRepo.ReleasePending(ctx, bestowal.SowerUserID, snapshot.SowerWallet, snapshot.SowerCents, now)
		if err != nil && !errors.Is(err, repository.ErrInsufficientPendingBalance) {
			return nil, err
		}
		if errors.Is(err, repository.ErrInsufficientPendingBalance) {
			// The hold was never credited (or was already drained); the
			// release still stands, the ledger discrepancy is surfaced.
			s.logger.WithField("order_ref", bestowal.OrderRef).Warn("escrow release without matching pending balance")
		}
	}

	bestowal.ReleaseStatus = entity.ReleaseStatusReleased
	bestowal.ReleasedAt = &now
	if snapshot.ManualReleaseAt == nil {
		snapshot.ManualReleaseAt = &now
	}
	bestowal.UpdatedAt = now
	if err := s.bestowalRepo.Update(ctx, bestowal); err != nil {
		return nil, err
	}

	_ = s.transactionRepo.Create(ctx, &entity.PaymentTransaction{
		BestowalID: bestowal.ID,
		Provider:   bestowal.Provider,
		EventType:  "escrow_released",
		OldStatus:  bestowal.Status,
		NewStatus:  bestowal.Status,
		CreatedAt:  now,
	})

	return &types.EscrowReleaseResponse{Success: true, Status: escrowStatusReleased}, nil
}
