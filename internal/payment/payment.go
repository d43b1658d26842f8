// Package payment defines the contract with an external payment provider.
package payment

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/atmanstudio/booking/internal/domain"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedWebhook = errors.New("malformed webhook")
	ErrUnavailable      = errors.New("payment provider unavailable")
)

type CreateRequest struct {
	BookingID      int64
	Amount         domain.Money
	Description    string
	IdempotenceKey string
}

// Result is the provider's view of one payment.
type Result struct {
	ID              string
	Status          string
	Amount          domain.Money
	Currency        string
	ConfirmationURL string
	PaymentMethod   string
	PaidAt          *time.Time
	Payload         []byte
}

// Notification is a verified webhook delivery.
type Notification struct {
	Event   string
	Payment Result
	Payload []byte
}

type Provider interface {
	Name() string
	CreatePayment(ctx context.Context, req CreateRequest) (*Result, error)
	GetPayment(ctx context.Context, paymentID string) (*Result, error)
	// ParseWebhook verifies and decodes a webhook body.
	ParseWebhook(body []byte, signature string) (*Notification, error)
}

// RedirectURL is where the customer lands for a payment in the given status:
// <returnURL>/payment/<display state>?payment_id=<id>. It is empty without a
// return URL.
func RedirectURL(returnURL, paymentID, status string) string {
	base := strings.TrimRight(strings.TrimSpace(returnURL), "/")
	if base == "" {
		return ""
	}

	q := url.Values{}
	q.Set("payment_id", paymentID)

	return base + "/payment/" + string(domain.DisplayStateOf(status)) + "?" + q.Encode()
}
