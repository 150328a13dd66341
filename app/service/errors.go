package service

import "errors"

var (
	ErrValidation          = errors.New("invalid request")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("resource is not in an operable state")
	ErrConfiguration       = errors.New("service is misconfigured")
	ErrWalletResolution    = errors.New("no payable wallet for recipient")
	ErrAmountMismatch      = errors.New("reported amount does not match stored amount")
	ErrPaymentProvider     = errors.New("payment provider request failed")
	ErrWebhookRejected     = errors.New("webhook rejected")
	ErrForbidden           = errors.New("caller is not allowed to perform this action")
	ErrRequestInFlight     = errors.New("a request with this idempotency key is already in flight")
	ErrProviderUnsupported = errors.New("provider is not supported")
)
