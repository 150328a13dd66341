package provider

import (
	"context"
	"encoding/json"
	"testing"
)

func newTestCryptomusProvider() *CryptomusProvider {
	return NewCryptomusProvider(CryptomusConfig{
		MerchantID:    "merchant-1",
		PaymentAPIKey: "payment-key",
		PayoutAPIKey:  "payout-key",
	})
}

func signedCryptomusPayload(t *testing.T, p *CryptomusProvider, fields map[string]interface{}) []byte {
	t.Helper()
	unsigned, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal unsigned: %v", err)
	}
	// Recompute the canonical form the verifier rebuilds: unmarshal to raw
	// fields and marshal again so key ordering matches.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(unsigned, &raw); err != nil {
		t.Fatalf("unmarshal unsigned: %v", err)
	}
	canonical, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal canonical: %v", err)
	}

	fields["sign"] = p.computeSign(canonical, p.cfg.PaymentAPIKey)
	payload, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal signed: %v", err)
	}
	return payload
}

func TestCryptomusVerifyWebhookPaid(t *testing.T) {
	p := newTestCryptomusProvider()
	payload := signedCryptomusPayload(t, p, map[string]interface{}{
		"type":     "payment",
		"uuid":     "8b03432e-385b-4670-8d06-064591096795",
		"order_id": "order-ref-7",
		"status":   "paid",
		"amount":   "200.00",
		"currency": "USDT",
	})

	event, err := p.VerifyWebhook(context.Background(), &WebhookRequest{
		Payload:    payload,
		MerchantID: "merchant-1",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if event.Outcome != OutcomePaid {
		t.Fatalf("expected paid outcome, got %v", event.Outcome)
	}
	if event.OrderRef != "order-ref-7" {
		t.Fatalf("unexpected order ref: %s", event.OrderRef)
	}
	if event.PaidAmountCents == nil || *event.PaidAmountCents != 20000 {
		t.Fatalf("unexpected paid amount: %v", event.PaidAmountCents)
	}
}

func TestCryptomusVerifyWebhookRejectsTamperedBody(t *testing.T) {
	p := newTestCryptomusProvider()
	payload := signedCryptomusPayload(t, p, map[string]interface{}{
		"uuid":     "8b03432e-385b-4670-8d06-064591096795",
		"order_id": "order-ref-7",
		"status":   "paid",
		"amount":   "200.00",
	})

	var fields map[string]interface{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fields["amount"] = "2000.00"
	tampered, _ := json.Marshal(fields)

	if _, err := p.VerifyWebhook(context.Background(), &WebhookRequest{Payload: tampered}); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestCryptomusVerifyWebhookRejectsMissingSign(t *testing.T) {
	p := newTestCryptomusProvider()
	payload, _ := json.Marshal(map[string]interface{}{
		"uuid":   "8b03432e-385b-4670-8d06-064591096795",
		"status": "paid",
	})

	if _, err := p.VerifyWebhook(context.Background(), &WebhookRequest{Payload: payload}); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestCryptomusVerifyWebhookRejectsForeignMerchant(t *testing.T) {
	p := newTestCryptomusProvider()
	payload := signedCryptomusPayload(t, p, map[string]interface{}{
		"uuid":   "8b03432e-385b-4670-8d06-064591096795",
		"status": "paid",
	})

	if _, err := p.VerifyWebhook(context.Background(), &WebhookRequest{
		Payload:    payload,
		MerchantID: "someone-else",
	}); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestCryptomusOutcomeMapping(t *testing.T) {
	tests := map[string]Outcome{
		"paid":          OutcomePaid,
		"paid_over":     OutcomePaid,
		"fail":          OutcomeFailed,
		"cancel":        OutcomeFailed,
		"system_fail":   OutcomeFailed,
		"wrong_amount":  OutcomeFailed,
		"expired":       OutcomeExpired,
		"process":       OutcomeUnrecognized,
		"confirm_check": OutcomeUnrecognized,
		"":              OutcomeUnrecognized,
	}
	for status, want := range tests {
		if got := cryptomusOutcome(status); got != want {
			t.Fatalf("cryptomusOutcome(%q) = %v, want %v", status, got, want)
		}
	}
}
