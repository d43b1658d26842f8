package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/repository"
	"github.com/atmanstudio/booking/internal/service/changes"
	"github.com/atmanstudio/booking/internal/service/lifecycle"
	"github.com/atmanstudio/booking/internal/uow"
)

// Service is the operator's view over bookings. Status overrides are not
// checked against the payment snapshot; only capacity can reject them.
type Service struct {
	store   repository.Store
	changes *changes.Broadcaster
	uow     *uow.UoW
}

func New(store repository.Store, bc *changes.Broadcaster) *Service {
	return &Service{
		store:   store,
		changes: bc,
		uow:     uow.NewUoW(store),
	}
}

// ListBookings returns bookings matching f, newest first.
//
// Returns:
//   - error: admin.ErrInvalidStatus if f.Status is set and outside the closed set.
func (s *Service) ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	const op = "service.admin.ListBookings"

	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidStatus)
	}

	out, err := s.store.Bookings().ListBookings(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	const op = "service.admin.GetBooking"

	b, err := s.store.Bookings().GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return b, nil
}

// UpdateStatus sets a booking to any status, reserving or releasing its seat.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: booking ID.
//   - status: target status from the closed set.
//
// Returns:
//   - *domain.Booking: the updated booking.
//   - error: admin.ErrInvalidStatus if status is unknown.
//   - error: admin.ErrBookingNotFound if the booking does not exist.
//   - error: admin.ErrNoSeats if the booking needs a seat and the event is full.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	const op = "service.admin.UpdateStatus"

	if !status.Valid() {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidStatus)
	}

	var out domain.Booking
	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		b, err := tx.Bookings().GetBooking(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		prev := b.Status
		moved, err := lifecycle.Transition(ctx, tx, b, status)
		if err != nil {
			if errors.Is(err, lifecycle.ErrNoSeats) {
				return ErrNoSeats
			}
			return err
		}

		out = *b
		if prev != status {
			after(func(ctx context.Context) {
				s.changes.BookingChanged(ctx, domain.NewBookingEvent(domain.BookingEventStatusChanged, out, prev), moved)
			})
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

// Delete removes a booking and releases the seat it held.
func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "service.admin.Delete"

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		b, err := tx.Bookings().GetBooking(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		released, err := lifecycle.Remove(ctx, tx, b)
		if err != nil {
			return err
		}

		deleted := *b
		after(func(ctx context.Context) {
			s.changes.BookingChanged(ctx, domain.NewBookingEvent(domain.BookingEventDeleted, deleted, deleted.Status), released)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
