package postgresrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/repository"
)

type ScheduleRepo struct {
	db DB
}

const scheduleColumns = `e.id, e.service_id, s.slug, s.title, e.start_time, e.end_time,
	e.max_participants, e.current_participants, e.is_individual, e.is_active,
	e.created_at, e.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduleEvent(row rowScanner, e *domain.ScheduleEvent) error {
	return row.Scan(
		&e.ID,
		&e.ServiceID,
		&e.ServiceSlug,
		&e.ServiceTitle,
		&e.StartTime,
		&e.EndTime,
		&e.MaxParticipants,
		&e.CurrentParticipants,
		&e.IsIndividual,
		&e.IsActive,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
}

// ListSchedule lists the events of active services.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - serviceSlug: restricts the result to one service; empty means all.
//
// Returns:
//   - []domain.ScheduleEvent: events ordered by start time, full and inactive included.
//   - error: if the query fails.
func (r *ScheduleRepo) ListSchedule(ctx context.Context, serviceSlug string) ([]domain.ScheduleEvent, error) {
	const op = "postgresrepo.ScheduleRepo.ListSchedule"

	rows, err := r.db.Query(ctx,
		`SELECT `+scheduleColumns+`
		 FROM schedule_events e
		 JOIN services s ON s.id = e.service_id
		 WHERE s.is_active AND ($1 = '' OR s.slug = $1)
		 ORDER BY e.start_time, e.id`,
		serviceSlug,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []domain.ScheduleEvent{}
	for rows.Next() {
		var e domain.ScheduleEvent
		if err := scanScheduleEvent(rows, &e); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// GetScheduleEvent retrieves a schedule event by its ID.
//
// Returns:
//   - *domain.ScheduleEvent: the event when found.
//   - error: repository.ErrNotFound if the event is not found.
func (r *ScheduleRepo) GetScheduleEvent(ctx context.Context, id int64) (*domain.ScheduleEvent, error) {
	const op = "postgresrepo.ScheduleRepo.GetScheduleEvent"

	var e domain.ScheduleEvent
	err := scanScheduleEvent(r.db.QueryRow(ctx,
		`SELECT `+scheduleColumns+`
		 FROM schedule_events e
		 JOIN services s ON s.id = e.service_id
		 WHERE e.id = $1`,
		id,
	), &e)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &e, nil
}

func (r *ScheduleRepo) CreateScheduleEvent(ctx context.Context, e domain.ScheduleEvent) (int64, error) {
	const op = "postgresrepo.ScheduleRepo.CreateScheduleEvent"

	var id int64
	if err := r.db.QueryRow(ctx,
		`INSERT INTO schedule_events(service_id, start_time, end_time, max_participants,
		 	current_participants, is_individual, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		e.ServiceID, e.StartTime, e.EndTime, e.MaxParticipants,
		e.CurrentParticipants, e.IsIndividual, e.IsActive,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *ScheduleRepo) UpdateScheduleEvent(ctx context.Context, e domain.ScheduleEvent) error {
	const op = "postgresrepo.ScheduleRepo.UpdateScheduleEvent"

	tag, err := r.db.Exec(ctx,
		`UPDATE schedule_events
		 SET service_id = $2, start_time = $3, end_time = $4, max_participants = $5,
		 	is_individual = $6, is_active = $7, updated_at = now()
		 WHERE id = $1`,
		e.ID, e.ServiceID, e.StartTime, e.EndTime, e.MaxParticipants,
		e.IsIndividual, e.IsActive,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// DeleteScheduleEvent deletes an event.
//
// Returns:
//   - error: repository.ErrNotFound if the event does not exist.
//   - error: repository.ErrReferenced if bookings still point at it.
func (r *ScheduleRepo) DeleteScheduleEvent(ctx context.Context, id int64) error {
	const op = "postgresrepo.ScheduleRepo.DeleteScheduleEvent"

	tag, err := r.db.Exec(ctx, `DELETE FROM schedule_events WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// ReserveSeat takes one seat of an event. The increment is guarded in the
// UPDATE itself so concurrent bookers can never push the event over capacity.
//
// Returns:
//   - error: repository.ErrNotFound if the event does not exist.
//   - error: repository.ErrSlotInactive if requireActive and the event is inactive.
//   - error: repository.ErrNoSeatsAvailable if the event is full.
func (r *ScheduleRepo) ReserveSeat(ctx context.Context, id int64, requireActive bool) error {
	const op = "postgresrepo.ScheduleRepo.ReserveSeat"

	tag, err := r.db.Exec(ctx,
		`UPDATE schedule_events
		 SET current_participants = current_participants + 1, updated_at = now()
		 WHERE id = $1
		 	AND current_participants < max_participants
		 	AND (is_active OR NOT $2)`,
		id, requireActive,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	var active bool
	if err := r.db.QueryRow(ctx,
		`SELECT is_active FROM schedule_events WHERE id = $1`,
		id,
	).Scan(&active); err != nil {
		return wrapDBErr(op, err)
	}

	if requireActive && !active {
		return fmt.Errorf("%s:%w", op, repository.ErrSlotInactive)
	}

	return fmt.Errorf("%s:%w", op, repository.ErrNoSeatsAvailable)
}

func (r *ScheduleRepo) ReleaseSeat(ctx context.Context, id int64) error {
	const op = "postgresrepo.ScheduleRepo.ReleaseSeat"

	tag, err := r.db.Exec(ctx,
		`UPDATE schedule_events
		 SET current_participants = GREATEST(current_participants - 1, 0), updated_at = now()
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *ScheduleRepo) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	const op = "postgresrepo.ScheduleRepo.GetService"

	var s domain.Service
	var pricing []byte
	if err := r.db.QueryRow(ctx,
		`SELECT id, slug, title, pricing, is_active FROM services WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Slug, &s.Title, &pricing, &s.IsActive); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if len(pricing) > 0 {
		if err := json.Unmarshal(pricing, &s.Pricing); err != nil {
			return nil, fmt.Errorf("%s: pricing: %w", op, err)
		}
	}

	return &s, nil
}
