package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/repository"
	"github.com/atmanstudio/booking/internal/repository/memory"
)

func setup(t *testing.T, max, cur int, status domain.BookingStatus) (*memory.Store, int64, int64) {
	t.Helper()

	s := memory.NewStore()
	svc := s.SeedService(domain.Service{Slug: "pilates", Title: "Pilates", IsActive: true})
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	eid := s.SeedEvent(domain.ScheduleEvent{
		ServiceID:           svc,
		StartTime:           start,
		EndTime:             start.Add(time.Hour),
		MaxParticipants:     max,
		CurrentParticipants: cur,
		IsActive:            true,
	})

	bid, err := s.Bookings().CreateBooking(context.Background(), domain.Booking{
		ScheduleEventID: eid,
		Status:          status,
	})
	require.NoError(t, err)

	return s, eid, bid
}

func current(t *testing.T, s *memory.Store, eid int64) int {
	t.Helper()
	e, err := s.Schedule().GetScheduleEvent(context.Background(), eid)
	require.NoError(t, err)
	return e.CurrentParticipants
}

func TestTransitionSeatAccounting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		from, to  domain.BookingStatus
		max, cur  int
		wantCur   int
		wantMoved bool
		wantErr   error
	}{
		{name: "waiting to confirmed keeps seat", from: domain.StatusWaitingPayment, to: domain.StatusConfirmed, max: 3, cur: 1, wantCur: 1},
		{name: "confirmed to cancelled releases", from: domain.StatusConfirmed, to: domain.StatusCancelled, max: 3, cur: 1, wantCur: 0, wantMoved: true},
		{name: "cancelled to pending reserves", from: domain.StatusCancelled, to: domain.StatusPending, max: 3, cur: 1, wantCur: 2, wantMoved: true},
		{name: "cancelled to confirmed on full event", from: domain.StatusCancelled, to: domain.StatusConfirmed, max: 2, cur: 2, wantCur: 2, wantErr: ErrNoSeats},
		{name: "same status is a no-op", from: domain.StatusPending, to: domain.StatusPending, max: 2, cur: 1, wantCur: 1},
		{name: "unknown status", from: domain.StatusPending, to: "archived", max: 2, cur: 1, wantCur: 1, wantErr: ErrInvalidStatus},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, eid, bid := setup(t, tc.max, tc.cur, tc.from)

			var moved bool
			err := s.RunTx(context.Background(), func(ctx context.Context, tx repository.Repos) error {
				b, err := tx.Bookings().GetBooking(ctx, bid)
				if err != nil {
					return err
				}
				moved, err = Transition(ctx, tx, b, tc.to)
				return err
			})

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.wantMoved, moved)

				b, err := s.Bookings().GetBooking(context.Background(), bid)
				require.NoError(t, err)
				assert.Equal(t, tc.to, b.Status)
			}

			assert.Equal(t, tc.wantCur, current(t, s, eid))
		})
	}
}

func TestRemoveReleasesHeldSeat(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		status  domain.BookingStatus
		wantCur int
	}{
		{status: domain.StatusConfirmed, wantCur: 0},
		{status: domain.StatusCancelled, wantCur: 1},
	} {
		s, eid, bid := setup(t, 2, 1, tc.status)

		err := s.RunTx(context.Background(), func(ctx context.Context, tx repository.Repos) error {
			b, err := tx.Bookings().GetBooking(ctx, bid)
			if err != nil {
				return err
			}
			_, err = Remove(ctx, tx, b)
			return err
		})
		require.NoError(t, err)

		assert.Equal(t, tc.wantCur, current(t, s, eid), tc.status)

		_, err = s.Bookings().GetBooking(context.Background(), bid)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	}
}
