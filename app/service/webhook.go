package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sow2grow/ms-go-bestowals/app/entity"
	"github.com/sow2grow/ms-go-bestowals/app/provider"
	"github.com/sow2grow/ms-go-bestowals/app/repository"
)

// Reported amounts may differ from the stored amount by at most one cent.
const amountToleranceCents = int64(1)

// HandleProviderWebhook verifies, deduplicates, and applies one provider
// webhook delivery. A nil return means the delivery is durably recorded and
// the provider should receive its success envelope; replays of an already
// processed delivery are also nil.
func (s *BestowalService) HandleProviderWebhook(ctx context.Context, providerCode int32, req *provider.WebhookRequest) error {
	providerClient, err := s.providerReg.Get(providerCode)
	if err != nil {
		return ErrProviderUnsupported
	}

	event, err := providerClient.VerifyWebhook(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrWebhookRejected, err.Error())
	}
	if event == nil || event.WebhookID == "" {
		return fmt.Errorf("%w: payload could not be parsed", ErrWebhookRejected)
	}

	now := time.Now().UTC()
	payloadHash := sha256.Sum256(req.Payload)
	record := &entity.WebhookEvent{
		Provider:    providerCode,
		WebhookID:   event.WebhookID,
		EventType:   event.EventType,
		PayloadHash: hex.EncodeToString(payloadHash[:]),
		PayloadJSON: string(req.Payload),
		Status:      entity.WebhookEventStatusProcessed,
		CreatedAt:   now,
	}

	// The insert is the replay gate: every side effect below runs at most
	// once per webhook id no matter how many times the provider redelivers.
	if err := s.webhookRepo.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrWebhookEventAlreadyExists) {
			return s.replayResult(ctx, providerCode, event.WebhookID)
		}
		return err
	}

	if err := s.processWebhookEvent(ctx, event, now); err != nil {
		errMsg := truncate(err.Error(), 1024)
		_ = s.webhookRepo.UpdateStatus(ctx, record.ID, entity.WebhookEventStatusRejected, &errMsg)
		return err
	}

	return nil
}

// replayResult reproduces the answer the original delivery got, so a provider
// retrying a rejected event keeps seeing the rejection instead of a success
// envelope.
func (s *BestowalService) replayResult(ctx context.Context, providerCode int32, webhookID string) error {
	existing, err := s.webhookRepo.Find(ctx, providerCode, webhookID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Status == entity.WebhookEventStatusRejected {
		reason := "previously rejected"
		if existing.Error != nil {
			reason = *existing.Error
		}
		return fmt.Errorf("%w: %s", ErrWebhookRejected, reason)
	}
	return nil
}

func (s *BestowalService) processWebhookEvent(ctx context.Context, event *provider.WebhookEvent, now time.Time) error {
	bestowal, err := s.bestowalRepo.FindByOrderRef(ctx, event.OrderRef)
	if err != nil {
		return err
	}
	if bestowal == nil {
		return fmt.Errorf("%w: no bestowal for order ref %q", ErrWebhookRejected, event.OrderRef)
	}

	if event.Outcome == provider.OutcomeUnrecognized {
		s.logger.WithFields(logrus.Fields{
			"order_ref":  event.OrderRef,
			"event_type": event.EventType,
		}).Warn("ignoring unrecognized provider event")
		return nil
	}

	if bestowal.Terminal() || bestowal.Status == entity.BestowalStatusCompleted {
		return nil
	}

	if event.Outcome == provider.OutcomePaid && event.PaidAmountCents != nil {
		diff := *event.PaidAmountCents - bestowal.AmountCents
		if diff < -amountToleranceCents || diff > amountToleranceCents {
			_ = s.transactionRepo.Create(ctx, &entity.PaymentTransaction{
				BestowalID:          bestowal.ID,
				Provider:            bestowal.Provider,
				EventType:           event.EventType,
				OldStatus:           bestowal.Status,
				NewStatus:           bestowal.Status,
				ReportedAmountCents: event.PaidAmountCents,
				CreatedAt:           now,
			})
			return fmt.Errorf("%w: reported %d cents, stored %d cents", ErrAmountMismatch, *event.PaidAmountCents, bestowal.AmountCents)
		}
	}

	return s.applyOutcome(ctx, bestowal, event.Outcome, event.EventType, event.PaidAmountCents, now)
}

// applyOutcome transitions the bestowal for a normalized provider outcome.
// It is shared by the webhook path and the reconcile job.
func (s *BestowalService) applyOutcome(ctx context.Context, bestowal *entity.Bestowal, outcome provider.Outcome, eventType string, reportedCents *int64, now time.Time) error {
	oldStatus := bestowal.Status

	switch outcome {
	case provider.OutcomePaid:
		bestowal.Status = entity.BestowalStatusCompleted
	case provider.OutcomeFailed:
		bestowal.Status = entity.BestowalStatusFailed
	case provider.OutcomeExpired:
		bestowal.Status = entity.BestowalStatusExpired
	default:
		return nil
	}

	bestowal.UpdatedAt = now
	if err := s.bestowalRepo.Update(ctx, bestowal); err != nil {
		return err
	}

	_ = s.transactionRepo.Create(ctx, &entity.PaymentTransaction{
		BestowalID:          bestowal.ID,
		Provider:            bestowal.Provider,
		EventType:           eventType,
		OldStatus:           oldStatus,
		NewStatus:           bestowal.Status,
		ReportedAmountCents: reportedCents,
		CreatedAt:           now,
	})

	if bestowal.Status != entity.BestowalStatusCompleted {
		return nil
	}

	snapshot := bestowal.Distribution
	if snapshot == nil {
		return fmt.Errorf("%w: completed bestowal %d has no distribution snapshot", ErrInvalidState, bestowal.ID)
	}

	if snapshot.Automatic() {
		if err := s.ExecuteDistribution(ctx, bestowal); err != nil {
			// Funds are in the holding wallet and the transfer ledger knows
			// what went out; a later ExecuteDistribution call resumes.
			s.logger.WithField("order_ref", bestowal.OrderRef).WithError(err).Error("distribution failed, can be re-run")
		}
	} else if snapshot.SowerCents > 0 {
		// Escrow hold: the sower share waits in pending until release.
		if err := s.balanceRepo.AddPending(ctx, bestowal.SowerUserID, snapshot.SowerWallet, snapshot.SowerCents, now); err != nil {
			s.logger.WithField("order_ref", bestowal.OrderRef).WithError(err).Error("pending balance credit failed")
		}
	}

	s.enqueueCompletionNotifications(ctx, bestowal, now)
	return nil
}

func truncate(v string, max int) string {
	if len(v) <= max {
		return v
	}
	return v[:max]
}
