// Package lifecycle keeps schedule capacity in step with booking status. It
// is the only place that moves current_participants as a side effect of a
// booking changing status or being deleted.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/repository"
)

var (
	ErrNoSeats       = errors.New("no seats available")
	ErrEventNotFound = errors.New("schedule event not found")
	ErrInvalidStatus = errors.New("invalid booking status")
)

// Transition moves b to status to inside tx, reserving or releasing the seat
// implied by the move. b is updated in place. The returned bool reports
// whether the seat count changed.
//
// Parameters:
//   - ctx: request-scoped context.
//   - tx: repositories bound to the caller's transaction.
//   - b: the booking as read in the same transaction.
//   - to: target status from the closed set.
//
// Returns:
//   - error: lifecycle.ErrInvalidStatus if to is not a known status.
//   - error: lifecycle.ErrNoSeats if the move needs a seat and the event is full.
//   - error: lifecycle.ErrEventNotFound if the booking's event is gone.
func Transition(ctx context.Context, tx repository.Repos, b *domain.Booking, to domain.BookingStatus) (bool, error) {
	const op = "service.lifecycle.Transition"

	if !to.Valid() {
		return false, fmt.Errorf("%s:%w", op, ErrInvalidStatus)
	}

	if b.Status == to {
		return false, nil
	}

	delta := domain.SeatDelta(b.Status, to)
	switch delta {
	case 1:
		// Admins may re-activate bookings on inactive events, so only capacity
		// is checked here.
		if err := tx.Schedule().ReserveSeat(ctx, b.ScheduleEventID, false); err != nil {
			return false, fmt.Errorf("%s:%w", op, mapSeatErr(err))
		}
	case -1:
		if err := tx.Schedule().ReleaseSeat(ctx, b.ScheduleEventID); err != nil {
			return false, fmt.Errorf("%s:%w", op, mapSeatErr(err))
		}
	}

	if err := tx.Bookings().UpdateBookingStatus(ctx, b.ID, to); err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	b.Status = to

	return delta != 0, nil
}

// Remove deletes b inside tx, releasing its seat when it holds one.
func Remove(ctx context.Context, tx repository.Repos, b *domain.Booking) (bool, error) {
	const op = "service.lifecycle.Remove"

	held := b.Status.HoldsSeat()
	if held {
		if err := tx.Schedule().ReleaseSeat(ctx, b.ScheduleEventID); err != nil &&
			!errors.Is(err, repository.ErrNotFound) {
			return false, fmt.Errorf("%s:%w", op, err)
		}
	}

	if err := tx.Bookings().DeleteBooking(ctx, b.ID); err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	return held, nil
}

func mapSeatErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNoSeatsAvailable):
		return ErrNoSeats
	case errors.Is(err, repository.ErrNotFound):
		return ErrEventNotFound
	}
	return err
}
