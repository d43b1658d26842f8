// Package changes propagates committed booking and schedule changes: cached
// schedule listings are dropped, open change streams are notified and booking
// events are published for downstream consumers.
package changes

import (
	"context"
	"log/slog"

	"github.com/atmanstudio/booking/internal/domain"
	redisrepo "github.com/atmanstudio/booking/internal/repository/redis"
)

// Publisher delivers booking events to a message broker.
type Publisher interface {
	PublishBookingEvent(ctx context.Context, ev domain.BookingEvent) error
}

// Broadcaster is safe to use as a nil pointer and with any dependency unset.
type Broadcaster struct {
	cache     *redisrepo.Cache
	pubsub    *redisrepo.SchedulePubSub
	hub       *Hub
	publisher Publisher
	logger    *slog.Logger
}

func NewBroadcaster(
	cache *redisrepo.Cache,
	pubsub *redisrepo.SchedulePubSub,
	hub *Hub,
	publisher Publisher,
	logger *slog.Logger,
) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}

	return &Broadcaster{
		cache:     cache,
		pubsub:    pubsub,
		hub:       hub,
		publisher: publisher,
		logger:    logger,
	}
}

// ScheduleChanged is called after a commit that changed an event's seats or
// attributes. With redis pubsub the local hub is fed by the relay, not here.
func (b *Broadcaster) ScheduleChanged(ctx context.Context, scheduleEventID int64) {
	if b == nil {
		return
	}

	if b.cache != nil {
		if err := b.cache.InvalidateSchedule(ctx); err != nil {
			b.logger.Warn("schedule cache invalidation failed",
				slog.Int64("schedule_event_id", scheduleEventID),
				slog.Any("err", err),
			)
		}
	}

	if b.pubsub != nil {
		if err := b.pubsub.PublishScheduleChanged(ctx, scheduleEventID); err != nil {
			b.logger.Warn("schedule change publish failed",
				slog.Int64("schedule_event_id", scheduleEventID),
				slog.Any("err", err),
			)
		}
		return
	}

	if b.hub != nil {
		b.hub.Notify(scheduleEventID)
	}
}

// BookingChanged publishes ev and, when the booking's seat moved, reports the
// schedule change as well.
func (b *Broadcaster) BookingChanged(ctx context.Context, ev domain.BookingEvent, seatMoved bool) {
	if b == nil {
		return
	}

	if seatMoved {
		b.ScheduleChanged(ctx, ev.ScheduleEventID)
	}

	if b.publisher == nil {
		return
	}

	if err := b.publisher.PublishBookingEvent(ctx, ev); err != nil {
		b.logger.Warn("booking event publish failed",
			slog.String("type", ev.Type),
			slog.Int64("booking_id", ev.BookingID),
			slog.Any("err", err),
		)
	}
}

// Relay forwards redis schedule change messages to the local hub until ctx
// is done.
func (b *Broadcaster) Relay(ctx context.Context) error {
	if b == nil || b.pubsub == nil || b.hub == nil {
		<-ctx.Done()
		return nil
	}

	err := b.pubsub.Subscribe(ctx, nil, func(_ context.Context, msg redisrepo.ScheduleChange) {
		b.hub.Notify(msg.ScheduleEventID)
	})
	if ctx.Err() != nil {
		return nil
	}

	return err
}
