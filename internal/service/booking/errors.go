package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrConsentRequired    = errors.New("all three consents are required")
	ErrInvalidContact     = errors.New("invalid contact details")
	ErrRateLimited        = errors.New("too many booking attempts")
	ErrSlotNotFound       = errors.New("schedule event not found")
	ErrSlotInactive       = errors.New("schedule event is not available for booking")
	ErrNoSeats            = errors.New("no seats available")
	ErrIndividualSlot     = errors.New("individual sessions are booked through the administrator")
	ErrPaymentUnavailable = errors.New("payment could not be created")
)

// ContactError names the contact field that failed validation.
type ContactError struct {
	Field string
}

func (e ContactError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func (e ContactError) Unwrap() error { return ErrInvalidContact }

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("too many booking attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e RateLimitedError) Unwrap() error { return ErrRateLimited }
