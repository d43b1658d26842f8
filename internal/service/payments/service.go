package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/payment"
	"github.com/atmanstudio/booking/internal/repository"
	"github.com/atmanstudio/booking/internal/service/changes"
	"github.com/atmanstudio/booking/internal/service/lifecycle"
	"github.com/atmanstudio/booking/internal/uow"
)

var tracer = otel.Tracer("github.com/atmanstudio/booking/internal/service/payments")

// EventStatusCheck is the payment log event type of a status poll.
const EventStatusCheck = "status_check"

type Config struct {
	ReturnURL string
}

// Service converges bookings with the status of their provider payments.
type Service struct {
	store    repository.Store
	provider payment.Provider
	changes  *changes.Broadcaster
	uow      *uow.UoW
	logger   *slog.Logger
	cfg      Config
}

func New(
	store repository.Store,
	provider payment.Provider,
	bc *changes.Broadcaster,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:    store,
		provider: provider,
		changes:  bc,
		uow:      uow.NewUoW(store),
		logger:   logger,
		cfg:      cfg,
	}
}

// CheckStatus fetches the provider status of a payment and applies it.
//
// Parameters:
//   - ctx: request-scoped context.
//   - paymentID: the provider payment id.
//
// Returns:
//   - *domain.PaymentSnapshot: payment status, booking status and redirect URL.
//   - error: payments.ErrPaymentNotFound if the payment is unknown.
//   - error: payments.ErrProviderUnavailable if the provider cannot be reached.
func (s *Service) CheckStatus(ctx context.Context, paymentID string) (*domain.PaymentSnapshot, error) {
	const op = "service.payments.CheckStatus"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("payment_id", paymentID))

	if s.provider == nil {
		return nil, fmt.Errorf("%s:%w", op, ErrPaymentsDisabled)
	}

	if _, err := s.store.Payments().GetPaymentByProviderID(ctx, paymentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	res, err := s.provider.GetPayment(ctx, paymentID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s:%w: %v", op, ErrProviderUnavailable, err)
	}

	snap, err := s.apply(ctx, *res, EventStatusCheck, res.Payload)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return snap, nil
}

// HandleWebhook verifies and applies a provider notification.
//
// Returns:
//   - error: payments.ErrInvalidSignature if the signature does not match.
//   - error: payments.ErrMalformedWebhook if the body cannot be decoded.
//   - error: payments.ErrPaymentNotFound if the payment is unknown.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	const op = "service.payments.HandleWebhook"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	if s.provider == nil {
		return fmt.Errorf("%s:%w", op, ErrPaymentsDisabled)
	}

	n, err := s.provider.ParseWebhook(body, signature)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			return fmt.Errorf("%s:%w", op, ErrInvalidSignature)
		case errors.Is(err, payment.ErrMalformedWebhook):
			return fmt.Errorf("%s:%w: %v", op, ErrMalformedWebhook, err)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	span.SetAttributes(
		attribute.String("payment_id", n.Payment.ID),
		attribute.String("event", n.Event),
	)

	if _, err := s.apply(ctx, n.Payment, n.Event, n.Payload); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// apply stores a provider status, logs it and moves the booking when the
// automated flow allows it, all in one transaction.
func (s *Service) apply(ctx context.Context, res payment.Result, eventType string, payload []byte) (*domain.PaymentSnapshot, error) {
	var snap domain.PaymentSnapshot

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		p, err := tx.Payments().GetPaymentByProviderID(ctx, res.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}

		p.Status = res.Status
		p.PaymentMethod = res.PaymentMethod
		p.PaidAt = res.PaidAt
		p.RawPayload = payload
		if err := tx.Payments().UpdatePayment(ctx, *p); err != nil {
			return err
		}

		if err := tx.Payments().AppendLog(ctx, p.ID, eventType, payload); err != nil {
			return err
		}

		b, err := tx.Bookings().GetBooking(ctx, p.BookingID)
		if err != nil {
			return err
		}

		if err := tx.Bookings().UpdatePaymentSnapshot(ctx, b.ID, res.Status, res.PaidAt); err != nil {
			return err
		}

		prev := b.Status
		next, move := domain.AutomatedTransition(b.Status, res.Status)

		if res.Status == domain.PaymentSucceeded && !move && b.Status != domain.StatusConfirmed {
			bookingID, status := b.ID, b.Status
			after(func(context.Context) {
				s.logger.Warn("payment succeeded for a booking that is not waiting for payment, manual review needed",
					slog.String("payment_id", res.ID),
					slog.Int64("booking_id", bookingID),
					slog.String("booking_status", string(status)),
				)
			})
		}

		if move {
			moved, err := lifecycle.Transition(ctx, tx, b, next)
			if err != nil {
				return err
			}

			changed := *b
			after(func(ctx context.Context) {
				s.changes.BookingChanged(ctx, domain.NewBookingEvent(domain.BookingEventStatusChanged, changed, prev), moved)
			})
		}

		snap = domain.PaymentSnapshot{
			PaymentID:     res.ID,
			Status:        res.Status,
			BookingID:     b.ID,
			BookingStatus: b.Status,
			RedirectURL:   payment.RedirectURL(s.cfg.ReturnURL, res.ID, res.Status),
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &snap, nil
}
