package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/atmanstudio/booking/internal/domain"
)

// Bindings are the routing keys the worker consumes.
var Bindings = []string{"booking.#"}

type Source interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

type Worker struct {
	source   Source
	notifier Notifier
	logger   *slog.Logger
}

func NewWorker(source Source, n Notifier, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{source: source, notifier: n, logger: logger}
}

// Run acks handled deliveries and requeues failed ones until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.source.Deliveries(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := w.Handle(ctx, d.RoutingKey, d.Body); err != nil {
				w.logger.Error("notification failed",
					slog.String("routing_key", d.RoutingKey),
					slog.Any("err", err),
				)
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle renders one booking event. Unknown keys are skipped.
func (w *Worker) Handle(ctx context.Context, key string, body []byte) error {
	var ev domain.BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		w.logger.Warn("skip malformed booking event",
			slog.String("routing_key", key),
			slog.Any("err", err),
		)
		return nil
	}

	subject, message, ok := Render(key, ev)
	if !ok {
		w.logger.Debug("skip unknown routing key", slog.String("routing_key", key))
		return nil
	}

	return w.notifier.Notify(ctx, subject, message)
}

// Render builds the human readable notice for a booking event.
func Render(key string, ev domain.BookingEvent) (subject, message string, ok bool) {
	who := fmt.Sprintf("%s <%s>", ev.Name, ev.Email)

	switch key {
	case domain.BookingEventCreated:
		subject = "New booking"
		message = fmt.Sprintf("Booking #%d for event #%d by %s is %s.", ev.BookingID, ev.ScheduleEventID, who, ev.Status)

	case domain.BookingEventStatusChanged:
		switch ev.Status {
		case domain.StatusConfirmed:
			subject = "Booking confirmed"
		case domain.StatusCancelled:
			subject = "Booking cancelled"
		default:
			subject = "Booking updated"
		}
		message = fmt.Sprintf("Booking #%d by %s moved from %s to %s.", ev.BookingID, who, ev.PreviousStatus, ev.Status)

	case domain.BookingEventDeleted:
		subject = "Booking deleted"
		message = fmt.Sprintf("Booking #%d for event #%d by %s was deleted.", ev.BookingID, ev.ScheduleEventID, who)

	default:
		return "", "", false
	}

	if ev.PaymentID != "" {
		message += fmt.Sprintf(" Payment %s.", ev.PaymentID)
	}

	return subject, message, true
}
