package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmanstudio/booking/internal/domain"
)

type capture struct {
	subjects []string
	messages []string
	err      error
}

func (c *capture) Notify(_ context.Context, subject, message string) error {
	c.subjects = append(c.subjects, subject)
	c.messages = append(c.messages, message)
	return c.err
}

func body(t *testing.T, ev domain.BookingEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestHandleRendersEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key         string
		ev          domain.BookingEvent
		wantSubject string
		wantIn      string
	}{
		{
			key:         domain.BookingEventCreated,
			ev:          domain.BookingEvent{BookingID: 5, ScheduleEventID: 2, Status: domain.StatusWaitingPayment, Name: "Anna", Email: "a@example.com"},
			wantSubject: "New booking",
			wantIn:      "Booking #5 for event #2 by Anna <a@example.com> is waiting_payment.",
		},
		{
			key:         domain.BookingEventStatusChanged,
			ev:          domain.BookingEvent{BookingID: 5, Status: domain.StatusConfirmed, PreviousStatus: domain.StatusWaitingPayment, PaymentID: "p-1"},
			wantSubject: "Booking confirmed",
			wantIn:      "moved from waiting_payment to confirmed. Payment p-1.",
		},
		{
			key:         domain.BookingEventDeleted,
			ev:          domain.BookingEvent{BookingID: 9, ScheduleEventID: 3},
			wantSubject: "Booking deleted",
			wantIn:      "was deleted",
		},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			t.Parallel()

			c := &capture{}
			w := NewWorker(nil, c, nil)
			require.NoError(t, w.Handle(context.Background(), tc.key, body(t, tc.ev)))

			require.Len(t, c.subjects, 1)
			assert.Equal(t, tc.wantSubject, c.subjects[0])
			assert.Contains(t, c.messages[0], tc.wantIn)
		})
	}
}

func TestHandleSkipsUnknownAndMalformed(t *testing.T) {
	t.Parallel()

	c := &capture{}
	w := NewWorker(nil, c, nil)

	require.NoError(t, w.Handle(context.Background(), "payment.refunded", body(t, domain.BookingEvent{BookingID: 1})))
	require.NoError(t, w.Handle(context.Background(), domain.BookingEventCreated, []byte("{")))
	assert.Empty(t, c.subjects)
}

func TestHandlePropagatesNotifierError(t *testing.T) {
	t.Parallel()

	c := &capture{err: errors.New("smtp down")}
	w := NewWorker(nil, c, nil)

	err := w.Handle(context.Background(), domain.BookingEventCreated, body(t, domain.BookingEvent{BookingID: 1}))
	assert.EqualError(t, err, "smtp down")
}
