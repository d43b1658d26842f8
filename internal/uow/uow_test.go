package uow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/repository"
	"github.com/atmanstudio/booking/internal/repository/memory"
)

func seed(t *testing.T) (*memory.Store, int64) {
	t.Helper()

	s := memory.NewStore()
	svc := s.SeedService(domain.Service{Slug: "yoga", Title: "Yoga", IsActive: true})
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	eid := s.SeedEvent(domain.ScheduleEvent{
		ServiceID:       svc,
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
		MaxParticipants: 2,
		IsActive:        true,
	})
	return s, eid
}

func TestDoRunsHooksAfterCommit(t *testing.T) {
	t.Parallel()

	s, eid := seed(t)
	ctx, cancel := context.WithCancel(context.Background())

	var hookErr error
	ran := 0
	err := NewUoW(s).Do(ctx, func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error {
		if err := tx.Schedule().ReserveSeat(ctx, eid, true); err != nil {
			return err
		}
		after(func(ctx context.Context) {
			ran++
			hookErr = ctx.Err()
		})
		cancel()
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, ran)
	assert.NoError(t, hookErr)

	e, err := s.Schedule().GetScheduleEvent(context.Background(), eid)
	require.NoError(t, err)
	assert.Equal(t, 1, e.CurrentParticipants)
}

func TestDoSkipsHooksOnRollback(t *testing.T) {
	t.Parallel()

	s, eid := seed(t)
	boom := errors.New("boom")

	ran := false
	err := NewUoW(s).Do(context.Background(), func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error {
		require.NoError(t, tx.Schedule().ReserveSeat(ctx, eid, true))
		after(func(context.Context) { ran = true })
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, ran)

	e, err := s.Schedule().GetScheduleEvent(context.Background(), eid)
	require.NoError(t, err)
	assert.Zero(t, e.CurrentParticipants)
}
