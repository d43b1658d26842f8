// Package api is the HTTP client of the booking backend used by bookingctl.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atmanstudio/booking/internal/domain"
)

// GenericMessage is shown when a failed request carries no server message.
const GenericMessage = "Something went wrong. Please try again later."

// APIError is a non-2xx response. Message is the server's error text,
// verbatim, or GenericMessage when the body had none.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return e.Message
}

// Message returns the text to show a user for err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return GenericMessage
}

type Client struct {
	base   string
	http   *http.Client
	token  string
	newKey func() string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token sent on admin requests.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithIdempotencyKeys replaces the generator of booking Idempotency-Keys.
func WithIdempotencyKeys(fn func() string) Option {
	return func(c *Client) { c.newKey = fn }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: 15 * time.Second},
		newKey: func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type ScheduleEvent struct {
	ID                  int64     `json:"id"`
	ServiceID           int64     `json:"service_id"`
	ServiceSlug         string    `json:"service_slug"`
	ServiceTitle        string    `json:"service_title"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	MaxParticipants     int       `json:"max_participants"`
	CurrentParticipants int       `json:"current_participants"`
	IsIndividual        bool      `json:"is_individual"`
	IsActive            bool      `json:"is_active"`
}

func (e ScheduleEvent) toDomain() domain.ScheduleEvent {
	return domain.ScheduleEvent{
		ID:                  e.ID,
		ServiceID:           e.ServiceID,
		ServiceSlug:         e.ServiceSlug,
		ServiceTitle:        e.ServiceTitle,
		StartTime:           e.StartTime,
		EndTime:             e.EndTime,
		MaxParticipants:     e.MaxParticipants,
		CurrentParticipants: e.CurrentParticipants,
		IsIndividual:        e.IsIndividual,
		IsActive:            e.IsActive,
	}
}

type BookingRequest struct {
	ScheduleEventID     int64  `json:"schedule_event_id"`
	Name                string `json:"name"`
	Phone               string `json:"phone"`
	Email               string `json:"email"`
	Comment             string `json:"comment,omitempty"`
	AcceptPrivacyPolicy bool   `json:"accept_privacy_policy"`
	AcceptPersonalData  bool   `json:"accept_personal_data"`
	AcceptTerms         bool   `json:"accept_terms"`
}

type BookingResult struct {
	BookingID       int64  `json:"booking_id"`
	Status          string `json:"status"`
	PaymentID       string `json:"payment_id"`
	PaymentStatus   string `json:"payment_status"`
	ConfirmationURL string `json:"confirmation_url"`
	Message         string `json:"message"`
}

type PaymentStatus struct {
	PaymentID     string `json:"payment_id"`
	Status        string `json:"status"`
	BookingID     int64  `json:"booking_id"`
	BookingStatus string `json:"booking_status"`
	RedirectURL   string `json:"redirect_url"`
}

type Booking struct {
	ID              int64      `json:"id"`
	ScheduleEventID int64      `json:"schedule_event_id"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	Email           string     `json:"email"`
	Comment         string     `json:"comment"`
	Status          string     `json:"status"`
	PaymentID       string     `json:"payment_id"`
	PaymentStatus   string     `json:"payment_status"`
	PaymentAmount   string     `json:"payment_amount"`
	PaidAt          *time.Time `json:"paid_at"`
	ServiceID       int64      `json:"service_id"`
	ServiceTitle    string     `json:"service_title"`
	EventStartTime  time.Time  `json:"event_start_time"`
	CreatedAt       time.Time  `json:"created_at"`
}

// BookingQuery filters ListBookings. Dates are sent as given.
type BookingQuery struct {
	Status    string
	ServiceID int64
	Search    string
	DateFrom  string
	DateTo    string
}

func (q BookingQuery) values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val = strings.TrimSpace(val); val != "" {
			v.Set(k, val)
		}
	}
	set("status", q.Status)
	if q.ServiceID > 0 {
		v.Set("service_id", strconv.FormatInt(q.ServiceID, 10))
	}
	set("search", q.Search)
	set("date_from", q.DateFrom)
	set("date_to", q.DateTo)
	return v
}

// ListSchedule returns every event of active services, full and inactive
// ones included.
func (c *Client) ListSchedule(ctx context.Context, serviceSlug string) ([]domain.ScheduleEvent, error) {
	q := url.Values{}
	if serviceSlug != "" {
		q.Set("service_slug", serviceSlug)
	}

	var raw []ScheduleEvent
	if err := c.do(ctx, http.MethodGet, "/api/schedule", q, nil, nil, &raw); err != nil {
		return nil, err
	}

	out := make([]domain.ScheduleEvent, 0, len(raw))
	for _, e := range raw {
		out = append(out, e.toDomain())
	}
	return out, nil
}

// CreateBooking submits one booking with a fresh Idempotency-Key.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	hdr := http.Header{}
	hdr.Set("Idempotency-Key", c.newKey())

	var out BookingResult
	if err := c.do(ctx, http.MethodPost, "/api/bookings", nil, hdr, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PaymentStatus(ctx context.Context, paymentID string) (*PaymentStatus, error) {
	var out PaymentStatus
	path := "/api/payments/" + url.PathEscape(paymentID) + "/status"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListBookings(ctx context.Context, q BookingQuery) ([]Booking, error) {
	var out []Booking
	if err := c.do(ctx, http.MethodGet, "/api/admin/bookings", q.values(), c.auth(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateBookingStatus(ctx context.Context, id int64, status string) (*Booking, error) {
	var out Booking
	path := fmt.Sprintf("/api/admin/bookings/%d/status", id)
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, path, nil, c.auth(), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteBooking(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/admin/bookings/%d", id)
	return c.do(ctx, http.MethodDelete, path, nil, c.auth(), nil, nil)
}

func (c *Client) auth() http.Header {
	hdr := http.Header{}
	if c.token != "" {
		hdr.Set("Authorization", "Bearer "+c.token)
	}
	return hdr
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, hdr http.Header, in, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp, raw)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func newAPIError(resp *http.Response, raw []byte) *APIError {
	e := &APIError{StatusCode: resp.StatusCode, Message: GenericMessage}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case strings.TrimSpace(body.Error) != "":
			e.Message = body.Error
		case strings.TrimSpace(body.Message) != "":
			e.Message = body.Message
		}
	}

	if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 {
		e.RetryAfter = time.Duration(s) * time.Second
	}

	return e
}
