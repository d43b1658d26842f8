package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/repository"
)

func seed(t *testing.T, max, cur int, active bool) (*Store, int64) {
	t.Helper()

	s := NewStore()
	svc := s.SeedService(domain.Service{Slug: "yoga", Title: "Yoga", IsActive: true})
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	id := s.SeedEvent(domain.ScheduleEvent{
		ServiceID:           svc,
		StartTime:           start,
		EndTime:             start.Add(time.Hour),
		MaxParticipants:     max,
		CurrentParticipants: cur,
		IsActive:            active,
	})
	return s, id
}

func TestReserveSeat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		max, cur      int
		active        bool
		requireActive bool
		wantErr       error
		wantCur       int
	}{
		{name: "free seat", max: 2, cur: 1, active: true, requireActive: true, wantCur: 2},
		{name: "full", max: 2, cur: 2, active: true, requireActive: true, wantErr: repository.ErrNoSeatsAvailable, wantCur: 2},
		{name: "inactive rejected", max: 2, cur: 0, active: false, requireActive: true, wantErr: repository.ErrSlotInactive, wantCur: 0},
		{name: "inactive allowed for admin", max: 2, cur: 0, active: false, requireActive: false, wantCur: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, id := seed(t, tc.max, tc.cur, tc.active)
			err := s.Schedule().ReserveSeat(context.Background(), id, tc.requireActive)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}

			e, err := s.Schedule().GetScheduleEvent(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tc.wantCur, e.CurrentParticipants)
		})
	}
}

func TestReleaseSeatNeverNegative(t *testing.T) {
	t.Parallel()

	s, id := seed(t, 1, 0, true)
	require.NoError(t, s.Schedule().ReleaseSeat(context.Background(), id))

	e, err := s.Schedule().GetScheduleEvent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, e.CurrentParticipants)
}

func TestRunTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	s, id := seed(t, 3, 0, true)
	boom := errors.New("boom")

	err := s.RunTx(context.Background(), func(ctx context.Context, tx repository.Repos) error {
		if err := tx.Schedule().ReserveSeat(ctx, id, true); err != nil {
			return err
		}
		if _, err := tx.Bookings().CreateBooking(ctx, domain.Booking{
			ScheduleEventID: id,
			Status:          domain.StatusPending,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	e, err := s.Schedule().GetScheduleEvent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, e.CurrentParticipants)

	list, err := s.Bookings().ListBookings(context.Background(), domain.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListBookingsFilters(t *testing.T) {
	t.Parallel()

	s, id := seed(t, 5, 0, true)
	ctx := context.Background()

	_, err := s.Bookings().CreateBooking(ctx, domain.Booking{
		ScheduleEventID: id,
		Contact:         domain.Contact{Name: "Anna", Phone: "+7900", Email: "anna@example.com"},
		Status:          domain.StatusConfirmed,
	})
	require.NoError(t, err)
	_, err = s.Bookings().CreateBooking(ctx, domain.Booking{
		ScheduleEventID: id,
		Contact:         domain.Contact{Name: "Boris", Phone: "+7911", Email: "boris@example.com"},
		Status:          domain.StatusPending,
	})
	require.NoError(t, err)

	got, err := s.Bookings().ListBookings(ctx, domain.BookingFilter{Search: "ANNA"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Anna", got[0].Name)
	assert.Equal(t, "Yoga", got[0].ServiceTitle)

	got, err = s.Bookings().ListBookings(ctx, domain.BookingFilter{Status: domain.StatusPending})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Boris", got[0].Name)

	after := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err = s.Bookings().ListBookings(ctx, domain.BookingFilter{DateFrom: &after})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteScheduleEventReferenced(t *testing.T) {
	t.Parallel()

	s, id := seed(t, 5, 0, true)
	ctx := context.Background()

	bid, err := s.Bookings().CreateBooking(ctx, domain.Booking{ScheduleEventID: id, Status: domain.StatusPending})
	require.NoError(t, err)

	require.ErrorIs(t, s.Schedule().DeleteScheduleEvent(ctx, id), repository.ErrReferenced)

	require.NoError(t, s.Bookings().DeleteBooking(ctx, bid))
	require.NoError(t, s.Schedule().DeleteScheduleEvent(ctx, id))
}
