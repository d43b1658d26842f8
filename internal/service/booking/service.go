package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/payment"
	"github.com/atmanstudio/booking/internal/repository"
	redisrepo "github.com/atmanstudio/booking/internal/repository/redis"
	"github.com/atmanstudio/booking/internal/service/changes"
	"github.com/atmanstudio/booking/internal/service/lifecycle"
	"github.com/atmanstudio/booking/internal/uow"
)

var tracer = otel.Tracer("github.com/atmanstudio/booking/internal/service/booking")

const (
	MessagePending        = "Booking received. We will contact you to confirm it."
	MessageWaitingPayment = "Booking created. Complete the payment to confirm it."

	defaultCurrency = "RUB"
)

type Service struct {
	store    repository.Store
	provider payment.Provider
	limiter  *redisrepo.Limiter
	changes  *changes.Broadcaster
	uow      *uow.UoW
	logger   *slog.Logger
}

// New builds the booking service. A nil provider books every service with
// manual confirmation; a nil limiter disables rate limiting.
func New(
	store repository.Store,
	provider payment.Provider,
	limiter *redisrepo.Limiter,
	bc *changes.Broadcaster,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:    store,
		provider: provider,
		limiter:  limiter,
		changes:  bc,
		uow:      uow.NewUoW(store),
		logger:   logger,
	}
}

// PaymentsEnabled reports whether priced services are booked through the
// payment provider.
func (s *Service) PaymentsEnabled() bool {
	return s.provider != nil
}

// Create books one seat of a schedule event.
//
// The seat is reserved and the booking stored in one transaction. Bookings of
// priced services start as waiting_payment and get a provider payment, created
// after the commit; the others start as pending.
//
// Parameters:
//   - ctx: request-scoped context.
//   - nb: the submitted booking.
//   - rlKey: rate limit key of the submitter; empty skips rate limiting.
//
// Returns:
//   - *domain.BookingReceipt: the created booking and, for paid bookings, the
//     provider confirmation URL.
//   - error: booking.ErrConsentRequired, booking.ErrInvalidContact before any write.
//   - error: booking.ErrRateLimited if the submitter exceeded the limit.
//   - error: booking.ErrSlotNotFound, booking.ErrSlotInactive, booking.ErrNoSeats.
//   - error: booking.ErrIndividualSlot for individual events, which are arranged
//     with the administrator directly.
//   - error: booking.ErrPaymentUnavailable if the payment could not be created
//     or recorded; the booking is cancelled and its seat released.
func (s *Service) Create(ctx context.Context, nb domain.NewBooking, rlKey string) (*domain.BookingReceipt, error) {
	const op = "service.booking.Create"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.Int64("schedule_event_id", nb.ScheduleEventID))

	if !nb.Consent.Complete() {
		return nil, fmt.Errorf("%s:%w", op, ErrConsentRequired)
	}

	contact := nb.Contact.Normalize()
	if field := contact.MissingField(); field != "" {
		return nil, fmt.Errorf("%s:%w", op, ContactError{Field: field})
	}

	if nb.ScheduleEventID <= 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrSlotNotFound)
	}

	if s.limiter != nil && rlKey != "" {
		d, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !d.Allowed {
			return nil, fmt.Errorf("%s:%w", op, RateLimitedError{RetryAfter: d.RetryAfter})
		}
	}

	var (
		b     domain.Booking
		event *domain.ScheduleEvent
		price domain.Money
		paid  bool
	)

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		var err error
		event, err = tx.Schedule().GetScheduleEvent(ctx, nb.ScheduleEventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSlotNotFound
			}
			return err
		}

		svc, err := tx.Schedule().GetService(ctx, event.ServiceID)
		if err != nil {
			return err
		}
		if !svc.IsActive || !event.IsActive {
			return ErrSlotInactive
		}
		if event.IsIndividual {
			return ErrIndividualSlot
		}

		price, paid = svc.Pricing.PriceFor(*event)
		paid = paid && s.provider != nil

		if err := tx.Schedule().ReserveSeat(ctx, event.ID, true); err != nil {
			switch {
			case errors.Is(err, repository.ErrNoSeatsAvailable):
				return ErrNoSeats
			case errors.Is(err, repository.ErrSlotInactive):
				return ErrSlotInactive
			case errors.Is(err, repository.ErrNotFound):
				return ErrSlotNotFound
			}
			return err
		}

		b = domain.Booking{
			ScheduleEventID: event.ID,
			Contact:         contact,
			Status:          domain.StatusPending,
		}
		if paid {
			b.Status = domain.StatusWaitingPayment
			b.PaymentStatus = domain.PaymentPending
		}

		b.ID, err = tx.Bookings().CreateBooking(ctx, b)
		if err != nil {
			return err
		}

		created := b
		after(func(ctx context.Context) {
			s.changes.BookingChanged(ctx, domain.NewBookingEvent(domain.BookingEventCreated, created, ""), true)
		})

		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	span.SetAttributes(attribute.Int64("booking_id", b.ID), attribute.Bool("paid", paid))

	if !paid {
		return &domain.BookingReceipt{
			BookingID: b.ID,
			Status:    b.Status,
			Message:   MessagePending,
		}, nil
	}

	// The booking is committed. Its payment bookkeeping must finish even if
	// the submitter goes away, or the seat stays held with no payment.
	bg := context.WithoutCancel(ctx)

	res, err := s.provider.CreatePayment(ctx, payment.CreateRequest{
		BookingID:      b.ID,
		Amount:         price,
		Description:    describe(event),
		IdempotenceKey: "booking-" + strconv.FormatInt(b.ID, 10),
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error("payment creation failed",
			slog.Int64("booking_id", b.ID),
			slog.Any("err", err),
		)

		s.cancelUnpaid(bg, b.ID)
		return nil, fmt.Errorf("%s:%w", op, ErrPaymentUnavailable)
	}

	if err := s.recordPayment(bg, b.ID, price, res); err != nil {
		span.RecordError(err)
		s.logger.Error("payment record failed, provider payment left unused",
			slog.Int64("booking_id", b.ID),
			slog.String("payment_id", res.ID),
			slog.Any("err", err),
		)

		s.cancelUnpaid(bg, b.ID)
		return nil, fmt.Errorf("%s:%w", op, ErrPaymentUnavailable)
	}

	return &domain.BookingReceipt{
		BookingID:       b.ID,
		Status:          b.Status,
		PaymentID:       res.ID,
		PaymentStatus:   res.Status,
		ConfirmationURL: res.ConfirmationURL,
		Message:         MessageWaitingPayment,
	}, nil
}

func describe(e *domain.ScheduleEvent) string {
	return fmt.Sprintf("%s, %s", e.ServiceTitle, e.StartTime.Format("02.01.2006 15:04"))
}

func (s *Service) recordPayment(ctx context.Context, bookingID int64, price domain.Money, res *payment.Result) error {
	currency := res.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	return s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, _ func(uow.AfterCommit)) error {
		pid, err := tx.Payments().CreatePayment(ctx, domain.Payment{
			BookingID:         bookingID,
			Provider:          s.provider.Name(),
			ProviderPaymentID: res.ID,
			Amount:            price,
			Currency:          currency,
			Status:            res.Status,
			PaymentMethod:     res.PaymentMethod,
			ConfirmationURL:   res.ConfirmationURL,
			PaidAt:            res.PaidAt,
			RawPayload:        res.Payload,
		})
		if err != nil {
			return err
		}

		if err := tx.Payments().AppendLog(ctx, pid, "payment_created", res.Payload); err != nil {
			return err
		}

		return tx.Bookings().AttachPayment(ctx, bookingID, res.ID, res.Status, price, res.ConfirmationURL)
	})
}

// cancelUnpaid cancels a booking whose payment could not be set up and
// releases its seat. Failures are logged.
func (s *Service) cancelUnpaid(ctx context.Context, bookingID int64) {
	if err := s.cancelUnpaidTx(ctx, bookingID); err != nil {
		s.logger.Error("cancel unpaid booking failed",
			slog.Int64("booking_id", bookingID),
			slog.Any("err", err),
		)
	}
}

func (s *Service) cancelUnpaidTx(ctx context.Context, bookingID int64) error {
	return s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		b, err := tx.Bookings().GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}

		prev := b.Status
		if err := tx.Bookings().UpdatePaymentSnapshot(ctx, b.ID, domain.PaymentFailed, nil); err != nil {
			return err
		}

		moved, err := lifecycle.Transition(ctx, tx, b, domain.StatusCancelled)
		if err != nil {
			return err
		}

		cancelled := *b
		after(func(ctx context.Context) {
			s.changes.BookingChanged(ctx, domain.NewBookingEvent(domain.BookingEventStatusChanged, cancelled, prev), moved)
		})

		return nil
	})
}
