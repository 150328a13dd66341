package provider

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type CryptomusConfig struct {
	MerchantID    string
	PaymentAPIKey string
	PayoutAPIKey  string
	BaseURL       string
	HTTPTimeout   time.Duration
}

// CryptomusProvider talks to the Cryptomus merchant API. Every request and
// webhook is signed with md5(base64(body) + api key); invoices use the payment
// key, payouts use the payout key.
type CryptomusProvider struct {
	cfg    CryptomusConfig
	client *http.Client
}

func NewCryptomusProvider(cfg CryptomusConfig) *CryptomusProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cryptomus.com"
	}

	return &CryptomusProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *CryptomusProvider) Code() int32 {
	return CodeCryptomus
}

func (p *CryptomusProvider) CreateOrder(ctx context.Context, input *OrderInput) (*OrderOutput, error) {
	body := map[string]interface{}{
		"amount":   formatCents(input.AmountCents),
		"currency": input.Currency,
		"order_id": input.OrderRef,
	}
	if input.ReturnURL != "" {
		body["url_return"] = input.ReturnURL
	}
	if input.ExpireMinutes > 0 {
		body["lifetime"] = input.ExpireMinutes * 60
	}

	respBody, err := p.post(ctx, "/v1/payment", body, p.cfg.PaymentAPIKey)
	if err != nil {
		return nil, err
	}

	var payload struct {
		State  int32 `json:"state"`
		Result struct {
			UUID string `json:"uuid"`
			URL  string `json:"url"`
		} `json:"result"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, err
	}
	if payload.State != 0 {
		return nil, fmt.Errorf("cryptomus invoice creation failed: state=%d message=%s", payload.State, payload.Message)
	}

	return &OrderOutput{
		ProviderOrderID: payload.Result.UUID,
		CheckoutURL:     payload.Result.URL,
	}, nil
}

func (p *CryptomusProvider) Transfer(ctx context.Context, input *TransferInput) (*TransferOutput, error) {
	body := map[string]interface{}{
		"amount":      formatCents(input.AmountCents),
		"currency":    input.Currency,
		"order_id":    input.RequestID,
		"address":     input.WalletAddress,
		"is_subtract": true,
	}

	respBody, err := p.post(ctx, "/v1/payout", body, p.cfg.PayoutAPIKey)
	if err != nil {
		return nil, err
	}

	var payload struct {
		State  int32 `json:"state"`
		Result struct {
			UUID string `json:"uuid"`
		} `json:"result"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, err
	}
	if payload.State != 0 {
		return nil, fmt.Errorf("cryptomus payout failed: state=%d message=%s", payload.State, payload.Message)
	}

	return &TransferOutput{ProviderTransferID: payload.Result.UUID}, nil
}

func (p *CryptomusProvider) GetOrderStatus(ctx context.Context, providerOrderID string) (Outcome, error) {
	if strings.TrimSpace(providerOrderID) == "" {
		return OutcomeUnrecognized, nil
	}

	respBody, err := p.post(ctx, "/v1/payment/info", map[string]interface{}{
		"uuid": providerOrderID,
	}, p.cfg.PaymentAPIKey)
	if err != nil {
		return OutcomeUnrecognized, err
	}

	var payload struct {
		State  int32 `json:"state"`
		Result struct {
			PaymentStatus string `json:"payment_status"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return OutcomeUnrecognized, err
	}
	if payload.State != 0 {
		return OutcomeUnrecognized, nil
	}

	return cryptomusOutcome(payload.Result.PaymentStatus), nil
}

func (p *CryptomusProvider) VerifyWebhook(_ context.Context, req *WebhookRequest) (*WebhookEvent, error) {
	if strings.TrimSpace(p.cfg.PaymentAPIKey) == "" {
		return nil, errors.New("cryptomus payment api key is not configured")
	}
	if strings.TrimSpace(req.MerchantID) != "" && req.MerchantID != p.cfg.MerchantID {
		return nil, ErrInvalidSignature
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(req.Payload, &fields); err != nil {
		return nil, err
	}

	var sign string
	if raw, ok := fields["sign"]; ok {
		if err := json.Unmarshal(raw, &sign); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(sign) == "" {
		return nil, ErrInvalidSignature
	}

	// The signature covers the payload with the sign field removed.
	delete(fields, "sign")
	unsigned, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	if !p.verifySign(unsigned, sign) {
		return nil, ErrInvalidSignature
	}

	var notification struct {
		Type          string `json:"type"`
		UUID          string `json:"uuid"`
		OrderID       string `json:"order_id"`
		Status        string `json:"status"`
		Amount        string `json:"amount"`
		PaymentAmount string `json:"payment_amount"`
		Currency      string `json:"currency"`
	}
	if err := json.Unmarshal(req.Payload, &notification); err != nil {
		return nil, err
	}
	if strings.TrimSpace(notification.UUID) == "" {
		return nil, errors.New("cryptomus webhook has no uuid")
	}

	event := &WebhookEvent{
		WebhookID:       notification.UUID + ":" + notification.Status,
		EventType:       notification.Status,
		Outcome:         cryptomusOutcome(notification.Status),
		OrderRef:        strings.TrimSpace(notification.OrderID),
		ProviderOrderID: notification.UUID,
		Currency:        strings.TrimSpace(notification.Currency),
	}

	amountRaw := strings.TrimSpace(notification.PaymentAmount)
	if amountRaw == "" {
		amountRaw = strings.TrimSpace(notification.Amount)
	}
	if amountRaw != "" {
		cents, err := parseDecimalCents(amountRaw)
		if err != nil {
			return nil, fmt.Errorf("cryptomus webhook amount: %w", err)
		}
		event.PaidAmountCents = &cents
	}

	return event, nil
}

func (p *CryptomusProvider) verifySign(body []byte, sign string) bool {
	expected := p.computeSign(body, p.cfg.PaymentAPIKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(sign)))) == 1
}

func (p *CryptomusProvider) computeSign(body []byte, apiKey string) string {
	encoded := base64.StdEncoding.EncodeToString(body)
	sum := md5.Sum([]byte(encoded + apiKey))
	return hex.EncodeToString(sum[:])
}

func (p *CryptomusProvider) post(ctx context.Context, path string, body map[string]interface{}, apiKey string) ([]byte, error) {
	if strings.TrimSpace(p.cfg.MerchantID) == "" || strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("cryptomus credentials are not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("merchant", p.cfg.MerchantID)
	req.Header.Set("sign", p.computeSign(payload, apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("cryptomus request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

func cryptomusOutcome(status string) Outcome {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "paid_over":
		return OutcomePaid
	case "fail", "cancel", "system_fail", "wrong_amount":
		return OutcomeFailed
	case "expired":
		return OutcomeExpired
	default:
		return OutcomeUnrecognized
	}
}
