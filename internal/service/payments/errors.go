package payments

import "errors"

var (
	ErrPaymentsDisabled    = errors.New("online payments are not configured")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrMalformedWebhook    = errors.New("malformed webhook")
)
