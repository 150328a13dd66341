package controller

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sow2grow/ms-go-bestowals/app/factory"
	"github.com/sow2grow/ms-go-bestowals/app/provider"
	"github.com/sow2grow/ms-go-bestowals/app/service"
	"github.com/sow2grow/ms-go-bestowals/app/types"
)

type WebhookController struct {
	bestowalService *service.BestowalService
	logger          logrus.FieldLogger
}

func NewWebhookController(bestowalService *service.BestowalService) *WebhookController {
	return &WebhookController{
		bestowalService: bestowalService,
		logger:          factory.NewModuleLogger("webhooks-controller"),
	}
}

// HandleBinanceWebhook answers Binance Pay's success envelope once the event
// is durably recorded; signature failures get a 400 so the provider retries.
func (c *WebhookController) HandleBinanceWebhook(ctx echo.Context) error {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, &types.BinanceWebhookAck{ReturnCode: "FAIL", ReturnMessage: "unreadable body"})
	}

	headers := ctx.Request().Header
	req := &provider.WebhookRequest{
		Payload:   payload,
		Timestamp: strings.TrimSpace(headers.Get("BinancePay-Timestamp")),
		Nonce:     strings.TrimSpace(headers.Get("BinancePay-Nonce")),
		Signature: strings.TrimSpace(headers.Get("BinancePay-Signature")),
	}

	if err := c.bestowalService.HandleProviderWebhook(ctx.Request().Context(), provider.CodeBinancePay, req); err != nil {
		status := c.webhookErrorStatus(ctx, err, "Binance webhook failed")
		return ctx.JSON(status, &types.BinanceWebhookAck{ReturnCode: "FAIL", ReturnMessage: reasonFor(err)})
	}

	return ctx.JSON(http.StatusOK, &types.BinanceWebhookAck{ReturnCode: "SUCCESS"})
}

func (c *WebhookController) HandleCryptomusWebhook(ctx echo.Context) error {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "unreadable body"})
	}

	req := &provider.WebhookRequest{
		Payload:    payload,
		MerchantID: strings.TrimSpace(ctx.Request().Header.Get("merchant")),
	}

	if err := c.bestowalService.HandleProviderWebhook(ctx.Request().Context(), provider.CodeCryptomus, req); err != nil {
		status := c.webhookErrorStatus(ctx, err, "Cryptomus webhook failed")
		return ctx.JSON(status, &types.ErrorResponse{Error: reasonFor(err)})
	}

	return ctx.JSON(http.StatusOK, &types.CryptomusWebhookAck{State: 0})
}

func (c *WebhookController) webhookErrorStatus(ctx echo.Context, err error, message string) int {
	switch {
	case errors.Is(err, service.ErrWebhookRejected),
		errors.Is(err, service.ErrAmountMismatch),
		errors.Is(err, service.ErrProviderUnsupported):
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Warn(message)
		return http.StatusBadRequest
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(message)
		return http.StatusInternalServerError
	}
}

// reasonFor hides internal detail from the provider-facing error body.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, service.ErrWebhookRejected):
		return "webhook rejected"
	case errors.Is(err, service.ErrAmountMismatch):
		return "amount mismatch"
	case errors.Is(err, service.ErrProviderUnsupported):
		return "unknown provider"
	default:
		return "internal error"
	}
}
