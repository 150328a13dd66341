package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	CodeBinancePay int32 = 1
	CodeCryptomus  int32 = 2
)

// Outcome is the normalized meaning of a provider webhook. Anything a provider
// reports that we do not recognize maps to OutcomeUnrecognized and is treated
// as non-final.
type Outcome int32

const (
	OutcomeUnrecognized Outcome = iota
	OutcomePaid
	OutcomeFailed
	OutcomeExpired
)

type OrderInput struct {
	OrderRef    string
	AmountCents int64
	Currency    string
	Description string

	ReturnURL string
	CancelURL string

	ExpireMinutes int64
}

type OrderOutput struct {
	ProviderOrderID string
	CheckoutURL     string
}

type TransferInput struct {
	RequestID     string
	WalletAddress string
	AmountCents   int64
	Currency      string
	Remark        string
}

type TransferOutput struct {
	ProviderTransferID string
}

// WebhookRequest carries the raw webhook body plus the provider-specific auth
// material pulled from headers by the controller.
type WebhookRequest struct {
	Payload    []byte
	Timestamp  string
	Nonce      string
	Signature  string
	MerchantID string
}

type WebhookEvent struct {
	// WebhookID identifies one logical delivery; redeliveries of the same
	// event carry the same id.
	WebhookID string
	EventType string
	Outcome   Outcome

	OrderRef        string
	ProviderOrderID string

	PaidAmountCents *int64
	Currency        string
}

type Provider interface {
	Code() int32
	CreateOrder(ctx context.Context, input *OrderInput) (*OrderOutput, error)
	VerifyWebhook(ctx context.Context, req *WebhookRequest) (*WebhookEvent, error)
	Transfer(ctx context.Context, input *TransferInput) (*TransferOutput, error)
	GetOrderStatus(ctx context.Context, providerOrderID string) (Outcome, error)
}

var ErrInvalidSignature = errors.New("invalid webhook signature")

func ParseCode(raw string) (int32, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "binance", "binancepay", "1":
		return CodeBinancePay, nil
	case "cryptomus", "2":
		return CodeCryptomus, nil
	default:
		return 0, ErrProviderNotSupported
	}
}

// formatCents renders an int64 cent amount as a 2-decimal string, the format
// both providers expect.
func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// parseDecimalCents parses a provider-reported decimal amount into cents.
// More than two fractional digits is rejected rather than silently truncated.
func parseDecimalCents(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty amount")
	}

	whole := raw
	frac := ""
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		whole = raw[:i]
		frac = raw[i+1:]
	}
	if len(frac) > 2 {
		if strings.Trim(frac[2:], "0") != "" {
			return 0, fmt.Errorf("amount %q has more than 2 decimal places", raw)
		}
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}

	cents, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	if cents < 0 {
		return 0, fmt.Errorf("negative amount %q", raw)
	}
	return cents, nil
}
