// Package yookassa is a client for the YooKassa payments REST API.
package yookassa

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/payment"
)

const (
	DefaultAPIBase = "https://api.yookassa.ru/v3"
	ProviderName   = "yookassa"
	currencyRUB    = "RUB"

	maxResponseBytes = 1 << 20
)

type Config struct {
	ShopID        string
	SecretKey     string
	ReturnURL     string
	WebhookSecret string
	APIBase       string
	Timeout       time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

var _ payment.Provider = (*Client)(nil)

func New(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether shop credentials are configured.
func (c *Client) Enabled() bool {
	return c.cfg.ShopID != "" && c.cfg.SecretKey != ""
}

func (c *Client) Name() string { return ProviderName }

type amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type createPaymentBody struct {
	Amount       amount            `json:"amount"`
	Capture      bool              `json:"capture"`
	Confirmation confirmation      `json:"confirmation"`
	Description  string            `json:"description"`
	Metadata     map[string]string `json:"metadata"`
}

type paymentObject struct {
	ID            string        `json:"id"`
	Status        string        `json:"status"`
	Amount        *amount       `json:"amount"`
	Confirmation  *confirmation `json:"confirmation"`
	PaymentMethod *struct {
		Type string `json:"type"`
	} `json:"payment_method"`
	CapturedAt *time.Time `json:"captured_at"`
}

func (o paymentObject) result(raw []byte) (*payment.Result, error) {
	if o.ID == "" {
		return nil, errors.New("payment object without id")
	}

	r := &payment.Result{
		ID:      o.ID,
		Status:  o.Status,
		Payload: raw,
	}
	if o.Amount != nil {
		m, err := domain.ParseMoney(o.Amount.Value)
		if err == nil {
			r.Amount = m
		}
		r.Currency = o.Amount.Currency
	}
	if o.Confirmation != nil {
		r.ConfirmationURL = o.Confirmation.ConfirmationURL
	}
	if o.PaymentMethod != nil {
		r.PaymentMethod = o.PaymentMethod.Type
	}
	if o.Status == domain.PaymentSucceeded && o.CapturedAt != nil {
		t := o.CapturedAt.UTC()
		r.PaidAt = &t
	}

	return r, nil
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yookassa: %d %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return payment.ErrUnavailable }

// CreatePayment creates a one-stage payment with a redirect confirmation.
func (c *Client) CreatePayment(ctx context.Context, req payment.CreateRequest) (*payment.Result, error) {
	const op = "yookassa.Client.CreatePayment"

	body := createPaymentBody{
		Amount:  amount{Value: req.Amount.String(), Currency: currencyRUB},
		Capture: true,
		Confirmation: confirmation{
			Type:      "redirect",
			ReturnURL: c.cfg.ReturnURL,
		},
		Description: req.Description,
		Metadata: map[string]string{
			"booking_id": strconv.FormatInt(req.BookingID, 10),
		},
	}

	raw, err := c.do(ctx, http.MethodPost, "/payments", req.IdempotenceKey, body)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	res, err := decodePayment(raw)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return res, nil
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*payment.Result, error) {
	const op = "yookassa.Client.GetPayment"

	raw, err := c.do(ctx, http.MethodGet, "/payments/"+paymentID, "", nil)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	res, err := decodePayment(raw)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return res, nil
}

func decodePayment(raw []byte) (*payment.Result, error) {
	var o paymentObject
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	return o.result(raw)
}

func (c *Client) do(ctx context.Context, method, path, idemKey string, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIBase+path, body)
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(c.cfg.ShopID, c.cfg.SecretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost && idemKey != "" {
		req.Header.Set("Idempotence-Key", idemKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	return raw, nil
}

type webhookEnvelope struct {
	Type   string          `json:"type"`
	Event  string          `json:"event"`
	Object json.RawMessage `json:"object"`
}

// ParseWebhook verifies the legacy X-Payment-Sha1-Hash signature, when a
// webhook secret is configured, and decodes the notification.
func (c *Client) ParseWebhook(body []byte, signature string) (*payment.Notification, error) {
	if !VerifySignature(c.cfg.WebhookSecret, body, signature) {
		return nil, payment.ErrInvalidSignature
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrMalformedWebhook, err)
	}
	if len(env.Object) == 0 {
		return nil, fmt.Errorf("%w: no object", payment.ErrMalformedWebhook)
	}

	var o paymentObject
	if err := json.Unmarshal(env.Object, &o); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrMalformedWebhook, err)
	}

	o.Status = strings.TrimSpace(o.Status)
	if o.Status == "" {
		return nil, fmt.Errorf("%w: no payment status", payment.ErrMalformedWebhook)
	}

	res, err := o.result(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrMalformedWebhook, err)
	}

	event := env.Event
	if event == "" {
		event = "webhook"
	}

	return &payment.Notification{
		Event:   event,
		Payment: *res,
		Payload: body,
	}, nil
}

// VerifySignature checks a hex HMAC-SHA1 of body. Without a secret every body
// is accepted.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		return true
	}

	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}

	return hmac.Equal([]byte(Sign(secret, body)), []byte(strings.ToLower(signature)))
}

// Sign returns the hex HMAC-SHA1 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
