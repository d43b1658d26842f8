// Package bookingflow submits one booking per user action: local validation
// first, then a single request, then either a hand-off to the payment page
// or a local confirmation.
package bookingflow

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/atmanstudio/booking/internal/client/api"
)

const DefaultConfirmation = "Thank you! Your booking has been received."

var ErrInFlight = errors.New("a booking request is already in progress")

type Submitter interface {
	CreateBooking(ctx context.Context, req api.BookingRequest) (*api.BookingResult, error)
}

// Navigator opens the payment provider's checkout page.
type Navigator interface {
	Navigate(url string) error
}

type Form struct {
	ScheduleEventID     int64
	Name                string
	Phone               string
	Email               string
	Comment             string
	AcceptPrivacyPolicy bool
	AcceptPersonalData  bool
	AcceptTerms         bool
}

type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Validate returns the first problem of f, or nil.
func Validate(f Form) *FieldError {
	switch {
	case f.ScheduleEventID <= 0:
		return &FieldError{Field: "schedule_event_id", Message: "Please choose a time slot"}
	case !f.AcceptPrivacyPolicy || !f.AcceptPersonalData || !f.AcceptTerms:
		return &FieldError{Field: "consent", Message: "Please accept the privacy policy, the personal data consent and the terms of service"}
	case strings.TrimSpace(f.Name) == "":
		return &FieldError{Field: "name", Message: "Please enter your name"}
	case strings.TrimSpace(f.Phone) == "":
		return &FieldError{Field: "phone", Message: "Please enter your phone number"}
	case strings.TrimSpace(f.Email) == "":
		return &FieldError{Field: "email", Message: "Please enter your email"}
	}
	return nil
}

// Outcome of a successful submission. Exactly one of RedirectURL and
// Confirmation is set.
type Outcome struct {
	BookingID    int64
	Status       string
	PaymentID    string
	RedirectURL  string
	Confirmation string
}

type Flow struct {
	submitter Submitter
	navigator Navigator
	inFlight  atomic.Bool
}

func New(s Submitter, n Navigator) *Flow {
	return &Flow{submitter: s, navigator: n}
}

// Busy reports whether a submission is in flight.
func (fl *Flow) Busy() bool {
	return fl.inFlight.Load()
}

// Submit validates f and sends it once. A call made while another is in
// flight returns ErrInFlight without a request. Server errors are returned
// as they are; api.Message gives the text to show.
func (fl *Flow) Submit(ctx context.Context, f Form) (*Outcome, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}

	if !fl.inFlight.CompareAndSwap(false, true) {
		return nil, ErrInFlight
	}
	defer fl.inFlight.Store(false)

	res, err := fl.submitter.CreateBooking(ctx, api.BookingRequest{
		ScheduleEventID:     f.ScheduleEventID,
		Name:                strings.TrimSpace(f.Name),
		Phone:               strings.TrimSpace(f.Phone),
		Email:               strings.TrimSpace(f.Email),
		Comment:             strings.TrimSpace(f.Comment),
		AcceptPrivacyPolicy: f.AcceptPrivacyPolicy,
		AcceptPersonalData:  f.AcceptPersonalData,
		AcceptTerms:         f.AcceptTerms,
	})
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		BookingID: res.BookingID,
		Status:    res.Status,
		PaymentID: res.PaymentID,
	}

	if res.ConfirmationURL != "" {
		out.RedirectURL = res.ConfirmationURL
		if fl.navigator != nil {
			if err := fl.navigator.Navigate(res.ConfirmationURL); err != nil {
				return out, err
			}
		}
		return out, nil
	}

	out.Confirmation = res.Message
	if out.Confirmation == "" {
		out.Confirmation = DefaultConfirmation
	}
	return out, nil
}
