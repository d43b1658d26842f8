package admin

import (
	"errors"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrInvalidStatus   = errors.New("invalid booking status")
	ErrNoSeats         = errors.New("no seats available for this status")
)
