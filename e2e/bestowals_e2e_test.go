//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/sow2grow/ms-go-bestowals/app/auth"
	"github.com/sow2grow/ms-go-bestowals/app/types"
)

const defaultBestowalsHTTPBase = "http://localhost:48080"

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) doJSON(t *testing.T, method, path, bearer string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", fmt.Sprintf("e2e-http-%d", time.Now().UnixNano()))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}

	return resp, bodyBytes
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		req, _ := http.NewRequest(http.MethodGet, baseURL+"/health", nil)
		req.Header.Set("X-Request-ID", fmt.Sprintf("wait-http-%d", time.Now().UnixNano()))
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func TestBestowalsE2E(t *testing.T) {
	httpBase := os.Getenv("BESTOWALS_HTTP_URL")
	if httpBase == "" {
		httpBase = defaultBestowalsHTTPBase
	}

	if err := waitForHTTP(httpBase, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}

	client := newHTTPClient(httpBase)
	memberToken := signBearerToken(t, "e2e-member", auth.RoleMember)
	courierToken := signBearerToken(t, "e2e-courier", auth.RoleCourier)

	t.Run("HTTPMissingRequestID", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, httpBase+"/health", nil)
		if err != nil {
			t.Fatalf("new request failed: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for missing x-request-id, got %d", resp.StatusCode)
		}
	})

	t.Run("HTTPHealth", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/health", "", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("CreateBestowalUnauthorized", func(t *testing.T) {
		resp, _ := client.doJSON(t, http.MethodPost, "/bestowals", "", map[string]any{}, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for missing bearer token, got %d", resp.StatusCode)
		}
	})

	t.Run("CreateBestowalValidation", func(t *testing.T) {
		headers := map[string]string{types.IdempotencyKeyHeader: fmt.Sprintf("e2e-%d", time.Now().UnixNano())}
		resp, body := client.doJSON(t, http.MethodPost, "/bestowals", memberToken, map[string]any{}, headers)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid create request, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("CreateBestowalMissingIdempotencyKey", func(t *testing.T) {
		payload := map[string]any{
			"orchardId":   "0b6cdbd8-6f9e-4f5b-9c33-0f2ff0a55a01",
			"amountCents": 15000,
			"pocketCount": 3,
		}
		resp, body := client.doJSON(t, http.MethodPost, "/bestowals", memberToken, payload, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("GetBestowalNotFound", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/bestowals/7e9a315e-21a3-4a3c-8c54-1ad2b32d3b11", memberToken, nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("GetBestowalBadRef", func(t *testing.T) {
		resp, _ := client.doJSON(t, http.MethodGet, "/bestowals/not-a-uuid", memberToken, nil, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("EscrowReleaseForbiddenForMember", func(t *testing.T) {
		payload := map[string]any{"bestowalId": 1, "bestowalType": "orchard"}
		resp, _ := client.doJSON(t, http.MethodPost, "/escrow/release", memberToken, payload, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403 for member role, got %d", resp.StatusCode)
		}
	})

	t.Run("EscrowReleaseNotFound", func(t *testing.T) {
		payload := map[string]any{"bestowalId": 999999, "bestowalType": "orchard"}
		resp, body := client.doJSON(t, http.MethodPost, "/escrow/release", courierToken, payload, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("BinanceWebhookBadSignature", func(t *testing.T) {
		headers := map[string]string{
			"BinancePay-Timestamp": fmt.Sprintf("%d", time.Now().UnixMilli()),
			"BinancePay-Nonce":     "e2e-nonce",
			"BinancePay-Signature": "invalid",
		}
		resp, body := client.doJSON(t, http.MethodPost, "/webhooks/binance", "", map[string]any{"bizStatus": "PAY_SUCCESS"}, headers)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d body=%s", resp.StatusCode, string(body))
		}
		var ack types.BinanceWebhookAck
		if err := json.Unmarshal(body, &ack); err != nil {
			t.Fatalf("unmarshal ack failed: %v body=%s", err, string(body))
		}
		if ack.ReturnCode != "FAIL" {
			t.Fatalf("expected FAIL ack, got %+v", ack)
		}
	})

	t.Run("CryptomusWebhookBadSignature", func(t *testing.T) {
		headers := map[string]string{"merchant": "e2e-merchant"}
		resp, _ := client.doJSON(t, http.MethodPost, "/webhooks/cryptomus", "", map[string]any{"status": "paid", "sign": "invalid"}, headers)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}
