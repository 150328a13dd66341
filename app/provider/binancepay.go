package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type BinancePayConfig struct {
	APIKey                    string
	APISecret                 string
	BaseURL                   string
	SignatureToleranceSeconds int64
	HTTPTimeout               time.Duration
}

// BinancePayProvider talks to the Binance Pay merchant API. Requests and
// webhooks are authenticated with an HMAC-SHA512 signature over
// "{timestamp}\n{nonce}\n{body}\n".
type BinancePayProvider struct {
	cfg    BinancePayConfig
	client *http.Client
}

func NewBinancePayProvider(cfg BinancePayConfig) *BinancePayProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.SignatureToleranceSeconds <= 0 {
		cfg.SignatureToleranceSeconds = 300
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://bpay.binanceapi.com"
	}

	return &BinancePayProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *BinancePayProvider) Code() int32 {
	return CodeBinancePay
}

func (p *BinancePayProvider) CreateOrder(ctx context.Context, input *OrderInput) (*OrderOutput, error) {
	body := map[string]interface{}{
		"env":             map[string]string{"terminalType": "WEB"},
		"merchantTradeNo": input.OrderRef,
		"orderAmount":     formatCents(input.AmountCents),
		"currency":        input.Currency,
		"description":     input.Description,
	}
	if input.ReturnURL != "" {
		body["returnUrl"] = input.ReturnURL
	}
	if input.CancelURL != "" {
		body["cancelUrl"] = input.CancelURL
	}
	if input.ExpireMinutes > 0 {
		body["orderExpireTime"] = time.Now().UTC().Add(time.Duration(input.ExpireMinutes)*time.Minute).UnixMilli()
	}

	respBody, err := p.post(ctx, "/binancepay/openapi/v3/order", body)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Status string `json:"status"`
		Code   string `json:"code"`
		Data   struct {
			PrepayID    string `json:"prepayId"`
			CheckoutURL string `json:"checkoutUrl"`
		} `json:"data"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "SUCCESS" {
		return nil, fmt.Errorf("binance pay order creation failed: code=%s message=%s", payload.Code, payload.ErrorMessage)
	}

	return &OrderOutput{
		ProviderOrderID: payload.Data.PrepayID,
		CheckoutURL:     payload.Data.CheckoutURL,
	}, nil
}

func (p *BinancePayProvider) Transfer(ctx context.Context, input *TransferInput) (*TransferOutput, error) {
	body := map[string]interface{}{
		"requestId":      input.RequestID,
		"currency":       input.Currency,
		"amount":         formatCents(input.AmountCents),
		"receiveType":    "PAY_ID",
		"receiver":       input.WalletAddress,
		"transferMethod": "FUNDING_WALLET",
	}
	if input.Remark != "" {
		body["remark"] = input.Remark
	}

	respBody, err := p.post(ctx, "/binancepay/openapi/wallet/transfer", body)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Status string `json:"status"`
		Code   string `json:"code"`
		Data   struct {
			TranID string `json:"tranId"`
		} `json:"data"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "SUCCESS" {
		return nil, fmt.Errorf("binance pay transfer failed: code=%s message=%s", payload.Code, payload.ErrorMessage)
	}

	return &TransferOutput{ProviderTransferID: payload.Data.TranID}, nil
}

func (p *BinancePayProvider) GetOrderStatus(ctx context.Context, providerOrderID string) (Outcome, error) {
	if strings.TrimSpace(providerOrderID) == "" {
		return OutcomeUnrecognized, nil
	}

	respBody, err := p.post(ctx, "/binancepay/openapi/v2/order/query", map[string]interface{}{
		"prepayId": providerOrderID,
	})
	if err != nil {
		return OutcomeUnrecognized, err
	}

	var payload struct {
		Status string `json:"status"`
		Data   struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return OutcomeUnrecognized, err
	}
	if payload.Status != "SUCCESS" {
		return OutcomeUnrecognized, nil
	}

	switch payload.Data.Status {
	case "PAID":
		return OutcomePaid, nil
	case "CANCELED", "ERROR":
		return OutcomeFailed, nil
	case "EXPIRED":
		return OutcomeExpired, nil
	default:
		return OutcomeUnrecognized, nil
	}
}

type binanceNotification struct {
	BizType   string `json:"bizType"`
	BizID     int64  `json:"bizId"`
	BizIDStr  string `json:"bizIdStr"`
	BizStatus string `json:"bizStatus"`
	Data      string `json:"data"`
}

func (p *BinancePayProvider) VerifyWebhook(_ context.Context, req *WebhookRequest) (*WebhookEvent, error) {
	if strings.TrimSpace(p.cfg.APISecret) == "" {
		return nil, errors.New("binance pay api secret is not configured")
	}
	if !p.verifySignature(req.Payload, req.Timestamp, req.Nonce, req.Signature) {
		return nil, ErrInvalidSignature
	}

	var notification binanceNotification
	if err := json.Unmarshal(req.Payload, &notification); err != nil {
		return nil, err
	}

	webhookID := strings.TrimSpace(notification.BizIDStr)
	if webhookID == "" && notification.BizID != 0 {
		webhookID = strconv.FormatInt(notification.BizID, 10)
	}
	if webhookID == "" {
		return nil, errors.New("binance webhook has no bizId")
	}

	event := &WebhookEvent{
		WebhookID:       webhookID + ":" + notification.BizStatus,
		EventType:       notification.BizStatus,
		ProviderOrderID: webhookID,
	}

	switch notification.BizStatus {
	case "PAY_SUCCESS":
		event.Outcome = OutcomePaid
	case "PAY_FAIL", "PAY_CLOSED":
		event.Outcome = OutcomeFailed
	case "PAY_EXPIRED":
		event.Outcome = OutcomeExpired
	default:
		event.Outcome = OutcomeUnrecognized
	}

	// The notification's data field is a JSON document encoded as a string.
	if notification.Data != "" {
		var data struct {
			MerchantTradeNo string `json:"merchantTradeNo"`
			TotalFee        string `json:"totalFee"`
			Currency        string `json:"currency"`
		}
		if err := json.Unmarshal([]byte(notification.Data), &data); err != nil {
			return nil, fmt.Errorf("binance webhook data is not valid JSON: %w", err)
		}
		event.OrderRef = strings.TrimSpace(data.MerchantTradeNo)
		event.Currency = strings.TrimSpace(data.Currency)
		if strings.TrimSpace(data.TotalFee) != "" {
			cents, err := parseDecimalCents(data.TotalFee)
			if err != nil {
				return nil, fmt.Errorf("binance webhook totalFee: %w", err)
			}
			event.PaidAmountCents = &cents
		}
	}

	return event, nil
}

func (p *BinancePayProvider) verifySignature(payload []byte, timestamp, nonce, signature string) bool {
	timestamp = strings.TrimSpace(timestamp)
	nonce = strings.TrimSpace(nonce)
	signature = strings.TrimSpace(signature)
	if timestamp == "" || nonce == "" || signature == "" {
		return false
	}

	tsMillis, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	now := time.Now().UnixMilli()
	toleranceMillis := p.cfg.SignatureToleranceSeconds * 1000
	if now-tsMillis > toleranceMillis || tsMillis-now > toleranceMillis {
		return false
	}

	expected := p.sign(timestamp, nonce, payload)
	candidate, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return false
	}
	decoded, _ := hex.DecodeString(expected)
	return hmac.Equal(candidate, decoded)
}

func (p *BinancePayProvider) sign(timestamp, nonce string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(p.cfg.APISecret))
	_, _ = mac.Write([]byte(timestamp + "\n" + nonce + "\n"))
	_, _ = mac.Write(body)
	_, _ = mac.Write([]byte("\n"))
	return hex.EncodeToString(mac.Sum(nil))
}

func (p *BinancePayProvider) post(ctx context.Context, path string, body map[string]interface{}) ([]byte, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" || strings.TrimSpace(p.cfg.APISecret) == "" {
		return nil, errors.New("binance pay credentials are not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("BinancePay-Timestamp", timestamp)
	req.Header.Set("BinancePay-Nonce", nonce)
	req.Header.Set("BinancePay-Certificate-SN", p.cfg.APIKey)
	req.Header.Set("BinancePay-Signature", strings.ToUpper(p.sign(timestamp, nonce, payload)))

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
		return nil, fmt.Errorf("binance pay request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
