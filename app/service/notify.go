package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sow2grow/ms-go-bestowals/app/entity"
)

type messagingPayload struct {
	RecipientUserID string `json:"recipientUserId"`
	SenderUserID    string `json:"senderUserId"`
	Kind            string `json:"kind"`
	Body            string `json:"body"`
	BestowalRef     string `json:"bestowalRef"`
}

// enqueueCompletionNotifications writes the three outbox messages that follow
// a successful payment. Everything here is best effort: a failed enqueue never
// rolls back or blocks the payment transition.
func (s *BestowalService) enqueueCompletionNotifications(ctx context.Context, bestowal *entity.Bestowal, now time.Time) {
	amount := fmt.Sprintf("%d.%02d %s", bestowal.AmountCents/100, bestowal.AmountCents%100, bestowal.Currency)

	messages := []*entity.NotificationMessage{
		{
			BestowalID:      bestowal.ID,
			Kind:            entity.NotificationKindProofOfPayment,
			RecipientUserID: bestowal.ContributorUserID,
			SenderUserID:    bestowal.SowerUserID,
			Body:            fmt.Sprintf("Your bestowal of %s was received. Reference: %s.", amount, bestowal.OrderRef),
		},
		{
			BestowalID:      bestowal.ID,
			Kind:            entity.NotificationKindThankYou,
			RecipientUserID: bestowal.ContributorUserID,
			SenderUserID:    bestowal.SowerUserID,
			Body:            fmt.Sprintf("Thank you for sowing %s into this orchard.", amount),
		},
		{
			BestowalID:      bestowal.ID,
			Kind:            entity.NotificationKindSowerNotice,
			RecipientUserID: bestowal.SowerUserID,
			SenderUserID:    bestowal.ContributorUserID,
			Body:            fmt.Sprintf("A bestowal of %s was completed on your orchard. Reference: %s.", amount, bestowal.OrderRef),
		},
	}

	for _, message := range messages {
		message.Status = entity.NotificationStatusPending
		message.CreatedAt = now
		message.UpdatedAt = now
		if err := s.notificationRepo.Create(ctx, message); err != nil {
			s.logger.WithField("order_ref", bestowal.OrderRef).WithError(err).Error("notification enqueue failed")
			continue
		}

		if message.Kind == entity.NotificationKindProofOfPayment && bestowal.Distribution != nil && bestowal.Distribution.ProofSentAt == nil {
			bestowal.Distribution.ProofSentAt = &now
			bestowal.UpdatedAt = now
			if err := s.bestowalRepo.Update(ctx, bestowal); err != nil {
				s.logger.WithField("order_ref", bestowal.OrderRef).WithError(err).Error("proof timestamp update failed")
			}
		}
	}
}

func (s *BestowalService) dispatchNotification(ctx context.Context, message *entity.NotificationMessage, now time.Time) error {
	baseURL := strings.TrimRight(strings.TrimSpace(s.notificationsCfg.MessagingBaseURL), "/")
	if baseURL == "" {
		errMsg := "messaging base url is not configured"
		message.Status = entity.NotificationStatusFailed
		message.NextAttemptAt = nil
		message.LastError = &errMsg
		message.UpdatedAt = now
		return s.notificationRepo.Update(ctx, message)
	}

	payload := &messagingPayload{
		RecipientUserID: message.RecipientUserID,
		SenderUserID:    message.SenderUserID,
		Kind:            message.Kind,
		Body:            message.Body,
		BestowalRef:     fmt.Sprintf("%d", message.BestowalID),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return s.recordDispatchFailure(ctx, message, now, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.messagingHTTP.Do(req)
	if err != nil {
		return s.recordDispatchFailure(ctx, message, now, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.recordDispatchFailure(ctx, message, now, fmt.Errorf("messaging endpoint returned status=%d", resp.StatusCode))
	}

	message.Status = entity.NotificationStatusSent
	message.NextAttemptAt = nil
	message.LastError = nil
	message.UpdatedAt = now
	return s.notificationRepo.Update(ctx, message)
}

func (s *BestowalService) recordDispatchFailure(ctx context.Context, message *entity.NotificationMessage, now time.Time, dispatchErr error) error {
	message.Attempts++
	trimmed := truncate(dispatchErr.Error(), 1024)
	message.LastError = &trimmed

	maxAttempts := s.notificationsCfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	if message.Attempts >= maxAttempts {
		message.Status = entity.NotificationStatusFailed
		message.NextAttemptAt = nil
	} else {
		retryInterval := s.notificationsCfg.RetryInterval
		if retryInterval <= 0 {
			retryInterval = 5 * time.Minute
		}
		next := now.Add(retryInterval)
		message.Status = entity.NotificationStatusPending
		message.NextAttemptAt = &next
	}
	message.UpdatedAt = now

	if err := s.notificationRepo.Update(ctx, message); err != nil {
		return err
	}
	return dispatchErr
}
