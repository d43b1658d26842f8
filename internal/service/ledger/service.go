package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/repository"
	redisrepo "github.com/atmanstudio/booking/internal/repository/redis"
	"github.com/atmanstudio/booking/internal/service/changes"
	"github.com/atmanstudio/booking/internal/uow"
)

var tracer = otel.Tracer("github.com/atmanstudio/booking/internal/service/ledger")

type Config struct {
	ScheduleTTL time.Duration
}

// Service exposes schedule events with their availability and lets admins
// edit them.
type Service struct {
	store   repository.Store
	cache   *redisrepo.Cache
	changes *changes.Broadcaster
	uow     *uow.UoW
	cfg     Config
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	bc *changes.Broadcaster,
	cfg Config,
) *Service {
	if cfg.ScheduleTTL <= 0 {
		cfg.ScheduleTTL = 15 * time.Second
	}

	return &Service{
		store:   store,
		cache:   cache,
		changes: bc,
		uow:     uow.NewUoW(store),
		cfg:     cfg,
	}
}

// ListSchedule returns every event of active services, ordered by start time.
// Inactive and full events are included.
//
// Parameters:
//   - ctx: request-scoped context.
//   - serviceSlug: restricts the listing to one service; empty lists all.
//
// Returns:
//   - []domain.ScheduleEvent: the events, possibly served from cache.
//   - error: if the listing cannot be loaded.
func (s *Service) ListSchedule(ctx context.Context, serviceSlug string) ([]domain.ScheduleEvent, error) {
	const op = "service.ledger.ListSchedule"

	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("service_slug", serviceSlug))

	load := func(ctx context.Context) ([]domain.ScheduleEvent, error) {
		return s.store.Schedule().ListSchedule(ctx, serviceSlug)
	}

	var (
		events []domain.ScheduleEvent
		err    error
	)
	if s.cache != nil {
		events, err = s.cache.Schedule(ctx, serviceSlug, s.cfg.ScheduleTTL, load)
	} else {
		events, err = load(ctx)
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return events, nil
}

// ListBookable returns the events a customer may book, earliest first.
func (s *Service) ListBookable(ctx context.Context, serviceSlug string) ([]domain.ScheduleEvent, error) {
	const op = "service.ledger.ListBookable"

	events, err := s.ListSchedule(ctx, serviceSlug)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return domain.FilterBookable(events), nil
}

func (s *Service) GetEvent(ctx context.Context, id int64) (*domain.ScheduleEvent, error) {
	const op = "service.ledger.GetEvent"

	e, err := s.store.Schedule().GetScheduleEvent(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return e, nil
}

func validate(e domain.ScheduleEvent) error {
	switch {
	case e.ServiceID <= 0:
		return fmt.Errorf("%w: service_id is required", ErrInvalidEvent)
	case e.MaxParticipants < 1:
		return fmt.Errorf("%w: max_participants must be at least 1", ErrInvalidEvent)
	case e.CurrentParticipants < 0 || e.CurrentParticipants > e.MaxParticipants:
		return fmt.Errorf("%w: current_participants must be between 0 and max_participants", ErrInvalidEvent)
	case !e.EndTime.After(e.StartTime):
		return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidEvent)
	}
	return nil
}

// CreateEvent adds a schedule event.
//
// Returns:
//   - int64: the new event ID.
//   - error: ledger.ErrInvalidEvent if the capacity or times are inconsistent.
//   - error: ledger.ErrServiceNotFound if the service does not exist.
func (s *Service) CreateEvent(ctx context.Context, e domain.ScheduleEvent) (int64, error) {
	const op = "service.ledger.CreateEvent"

	if err := validate(e); err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	var id int64
	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		if _, err := tx.Schedule().GetService(ctx, e.ServiceID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrServiceNotFound
			}
			return err
		}

		var err error
		id, err = tx.Schedule().CreateScheduleEvent(ctx, e)
		if err != nil {
			return mapEventErr(err)
		}

		after(func(ctx context.Context) {
			s.changes.ScheduleChanged(ctx, id)
		})

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return id, nil
}

// UpdateEvent replaces the editable attributes of an event.
// CurrentParticipants is owned by bookings and is never taken from e; the
// new capacity must still hold the seats already taken.
func (s *Service) UpdateEvent(ctx context.Context, e domain.ScheduleEvent) error {
	const op = "service.ledger.UpdateEvent"

	e.CurrentParticipants = 0
	if err := validate(e); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		if _, err := tx.Schedule().GetService(ctx, e.ServiceID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrServiceNotFound
			}
			return err
		}

		cur, err := tx.Schedule().GetScheduleEvent(ctx, e.ID)
		if err != nil {
			return mapEventErr(err)
		}
		if e.MaxParticipants < cur.CurrentParticipants {
			return fmt.Errorf("%w: max_participants is below the %d seats already taken",
				ErrInvalidEvent, cur.CurrentParticipants)
		}

		if err := tx.Schedule().UpdateScheduleEvent(ctx, e); err != nil {
			return mapEventErr(err)
		}

		after(func(ctx context.Context) {
			s.changes.ScheduleChanged(ctx, e.ID)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// DeleteEvent removes an event that no booking references.
//
// Returns:
//   - error: ledger.ErrEventNotFound if the event does not exist.
//   - error: ledger.ErrEventHasBooking if bookings still reference it.
func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	const op = "service.ledger.DeleteEvent"

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		if err := tx.Schedule().DeleteScheduleEvent(ctx, id); err != nil {
			return mapEventErr(err)
		}

		after(func(ctx context.Context) {
			s.changes.ScheduleChanged(ctx, id)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func mapEventErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrEventNotFound
	case errors.Is(err, repository.ErrReferenced):
		return ErrEventHasBooking
	case errors.Is(err, repository.ErrConflict):
		return ErrInvalidEvent
	}
	return err
}
