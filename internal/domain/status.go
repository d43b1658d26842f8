package domain

import (
	"errors"
	"fmt"
)

type BookingStatus string

const (
	StatusPending        BookingStatus = "pending"
	StatusWaitingPayment BookingStatus = "waiting_payment"
	StatusConfirmed      BookingStatus = "confirmed"
	StatusCancelled      BookingStatus = "cancelled"
)

var ErrUnknownStatus = errors.New("unknown booking status")

// BookingStatuses lists the closed set of booking statuses.
func BookingStatuses() []BookingStatus {
	return []BookingStatus{
		StatusPending,
		StatusWaitingPayment,
		StatusConfirmed,
		StatusCancelled,
	}
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusWaitingPayment, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// HoldsSeat reports whether a booking in this status occupies a seat.
func (s BookingStatus) HoldsSeat() bool {
	return s.Valid() && s != StatusCancelled
}

// Final reports whether the automated payment flow stops at this status.
func (s BookingStatus) Final() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// SeatDelta is the change to current_participants implied by moving a booking
// from one status to another.
func SeatDelta(from, to BookingStatus) int {
	switch {
	case !from.HoldsSeat() && to.HoldsSeat():
		return 1
	case from.HoldsSeat() && !to.HoldsSeat():
		return -1
	}
	return 0
}

// AutomatedTransition returns the status a payment status moves a booking to.
// Only bookings waiting for payment are moved.
func AutomatedTransition(current BookingStatus, paymentStatus string) (BookingStatus, bool) {
	if current != StatusWaitingPayment {
		return current, false
	}

	switch paymentStatus {
	case PaymentSucceeded:
		return StatusConfirmed, true
	case PaymentCanceled, PaymentCancelled, PaymentFailed:
		return StatusCancelled, true
	}

	return current, false
}
