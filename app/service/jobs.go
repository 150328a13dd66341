package service

import (
	"context"
	"strings"
	"time"
)

// RunReconcileBatch asks the provider for the real status of stale pending
// bestowals that never got a webhook, then applies the answer through the
// same transition logic the webhook path uses. Expired orders stop sticking
// in pending.
func (s *BestowalService) RunReconcileBatch(ctx context.Context) error {
	now := time.Now().UTC()
	cutoff := now.Add(-s.distributionCfg.OrderExpiry)
	items, err := s.bestowalRepo.ListStalePending(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, bestowal := range items {
		if bestowal == nil || bestowal.ProviderOrderID == nil || strings.TrimSpace(*bestowal.ProviderOrderID) == "" {
			continue
		}

		providerClient, err := s.providerReg.Get(bestowal.Provider)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		outcome, err := providerClient.GetOrderStatus(ctx, strings.TrimSpace(*bestowal.ProviderOrderID))
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		if err := s.applyOutcome(ctx, bestowal, outcome, "status_reconciled", nil, now); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// RunDispatchNotificationsBatch delivers due outbox messages. It never touches
// financial state.
func (s *BestowalService) RunDispatchNotificationsBatch(ctx context.Context) error {
	now := time.Now().UTC()
	items, err := s.notificationRepo.ListDue(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, message := range items {
		if message == nil {
			continue
		}
		if err := s.dispatchNotification(ctx, message, now); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
