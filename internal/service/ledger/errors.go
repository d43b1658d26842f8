package ledger

import "errors"

var (
	ErrEventNotFound   = errors.New("schedule event not found")
	ErrServiceNotFound = errors.New("service not found")
	ErrInvalidEvent    = errors.New("invalid schedule event")
	ErrEventHasBooking = errors.New("schedule event has bookings")
)
