package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/repository/memory"
	redisrepo "github.com/atmanstudio/booking/internal/repository/redis"
	"github.com/atmanstudio/booking/internal/service/changes"
)

var base = time.Date(2026, 5, 10, 10, 0, 0, 0, time.UTC)

func event(svc int64, offset time.Duration, max, cur int, active bool) domain.ScheduleEvent {
	return domain.ScheduleEvent{
		ServiceID:           svc,
		StartTime:           base.Add(offset),
		EndTime:             base.Add(offset + time.Hour),
		MaxParticipants:     max,
		CurrentParticipants: cur,
		IsActive:            active,
	}
}

func TestListBookableFiltersAndOrders(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	yoga := store.SeedService(domain.Service{Slug: "yoga", Title: "Yoga", IsActive: true})
	hidden := store.SeedService(domain.Service{Slug: "old", Title: "Old", IsActive: false})

	late := store.SeedEvent(event(yoga, 3*time.Hour, 5, 1, true))
	early := store.SeedEvent(event(yoga, time.Hour, 5, 4, true))
	store.SeedEvent(event(yoga, 2*time.Hour, 5, 5, true))
	store.SeedEvent(event(yoga, 30*time.Minute, 5, 0, false))
	store.SeedEvent(event(hidden, 0, 5, 0, true))

	svc := New(store, nil, nil, Config{})

	all, err := svc.ListSchedule(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	got, err := svc.ListBookable(context.Background(), "yoga")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early, got[0].ID)
	assert.Equal(t, late, got[1].ID)
	for _, e := range got {
		assert.Positive(t, e.AvailableSpots())
	}
}

func TestCreateEventValidation(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	yoga := store.SeedService(domain.Service{Slug: "yoga", Title: "Yoga", IsActive: true})
	svc := New(store, nil, nil, Config{})

	bad := []domain.ScheduleEvent{
		event(yoga, 0, 0, 0, true),
		event(yoga, 0, 2, 3, true),
		event(yoga, 0, 2, -1, true),
		{ServiceID: yoga, StartTime: base, EndTime: base, MaxParticipants: 1},
	}
	for _, e := range bad {
		_, err := svc.CreateEvent(context.Background(), e)
		assert.ErrorIs(t, err, ErrInvalidEvent)
	}

	_, err := svc.CreateEvent(context.Background(), event(999, 0, 2, 0, true))
	assert.ErrorIs(t, err, ErrServiceNotFound)

	id, err := svc.CreateEvent(context.Background(), event(yoga, 0, 2, 0, true))
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestDeleteEventWithBookings(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	yoga := store.SeedService(domain.Service{Slug: "yoga", Title: "Yoga", IsActive: true})
	eid := store.SeedEvent(event(yoga, 0, 2, 1, true))
	_, err := store.Bookings().CreateBooking(context.Background(), domain.Booking{
		ScheduleEventID: eid,
		Status:          domain.StatusConfirmed,
	})
	require.NoError(t, err)

	svc := New(store, nil, nil, Config{})
	assert.ErrorIs(t, svc.DeleteEvent(context.Background(), eid), ErrEventHasBooking)
	assert.ErrorIs(t, svc.DeleteEvent(context.Background(), 12345), ErrEventNotFound)
}

func TestUpdateEventKeepsTakenSeats(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	yoga := store.SeedService(domain.Service{Slug: "yoga", Title: "Yoga", IsActive: true})
	eid := store.SeedEvent(event(yoga, 0, 3, 0, true))
	svc := New(store, nil, nil, Config{})
	ctx := context.Background()

	form, err := svc.GetEvent(ctx, eid)
	require.NoError(t, err)

	// A booking lands while the edit form is open.
	require.NoError(t, store.Schedule().ReserveSeat(ctx, eid, true))
	require.NoError(t, store.Schedule().ReserveSeat(ctx, eid, true))

	edit := *form
	edit.MaxParticipants = 4
	require.NoError(t, svc.UpdateEvent(ctx, edit))

	got, err := svc.GetEvent(ctx, eid)
	require.NoError(t, err)
	assert.Equal(t, 4, got.MaxParticipants)
	assert.Equal(t, 2, got.CurrentParticipants)

	edit.MaxParticipants = 1
	edit.CurrentParticipants = 1
	assert.ErrorIs(t, svc.UpdateEvent(ctx, edit), ErrInvalidEvent)

	got, err = svc.GetEvent(ctx, eid)
	require.NoError(t, err)
	assert.Equal(t, 4, got.MaxParticipants)
	assert.Equal(t, 2, got.CurrentParticipants)

	edit.ID = 12345
	edit.MaxParticipants = 4
	assert.ErrorIs(t, svc.UpdateEvent(ctx, edit), ErrEventNotFound)
}

func TestScheduleCacheInvalidatedOnChange(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cache := redisrepo.New(rdb)
	store := memory.NewStore()
	yoga := store.SeedService(domain.Service{Slug: "yoga", Title: "Yoga", IsActive: true})
	eid := store.SeedEvent(event(yoga, 0, 2, 0, true))

	bc := changes.NewBroadcaster(cache, nil, changes.NewHub(), nil, nil)
	svc := New(store, cache, bc, Config{ScheduleTTL: time.Minute})
	ctx := context.Background()

	got, err := svc.ListSchedule(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, mr.Exists(redisrepo.KeySchedule("")))

	e := got[0]
	e.MaxParticipants = 10
	require.NoError(t, svc.UpdateEvent(ctx, e))
	assert.False(t, mr.Exists(redisrepo.KeySchedule("")))

	got, err = svc.ListSchedule(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, eid, got[0].ID)
	assert.Equal(t, 10, got[0].MaxParticipants)
}
