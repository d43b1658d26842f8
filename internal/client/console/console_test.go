package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmanstudio/booking/internal/client/api"
)

type fakeBackend struct {
	bookings map[int64]api.Booking
	updates  []string
	deletes  []int64
	lists    int
}

func newBackend() *fakeBackend {
	return &fakeBackend{bookings: map[int64]api.Booking{
		1: {ID: 1, Name: "Anna", Status: "waiting_payment", PaymentID: "p1", PaymentStatus: "pending"},
		2: {ID: 2, Name: "Ivan", Status: "pending"},
	}}
}

func (f *fakeBackend) ListBookings(_ context.Context, q api.BookingQuery) ([]api.Booking, error) {
	f.lists++
	var out []api.Booking
	for _, id := range []int64{1, 2} {
		b, ok := f.bookings[id]
		if !ok || (q.Status != "" && b.Status != q.Status) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBackend) UpdateBookingStatus(_ context.Context, id int64, status string) (*api.Booking, error) {
	f.updates = append(f.updates, status)
	b := f.bookings[id]
	b.Status = status
	f.bookings[id] = b
	return &b, nil
}

func (f *fakeBackend) DeleteBooking(_ context.Context, id int64) error {
	f.deletes = append(f.deletes, id)
	delete(f.bookings, id)
	return nil
}

type answer bool

func (a answer) Confirm(string) (bool, error) { return bool(a), nil }

func TestStageDoesNotSend(t *testing.T) {
	t.Parallel()

	be := newBackend()
	c := New(be, answer(true))
	_, err := c.Load(context.Background(), api.BookingQuery{})
	require.NoError(t, err)

	require.NoError(t, c.Stage(1, "confirmed"))
	require.NoError(t, c.Stage(1, "cancelled"))

	assert.Empty(t, be.updates)
	assert.Equal(t, "waiting_payment", be.bookings[1].Status)
	assert.Equal(t, "cancelled", c.Rows()[0].Draft)

	c.Discard(1)
	_, err = c.Save(context.Background(), 1)
	require.ErrorIs(t, err, ErrNoDraft)
	assert.Empty(t, be.updates)
}

func TestSaveSendsExactlyOneUpdate(t *testing.T) {
	t.Parallel()

	be := newBackend()
	c := New(be, answer(true))
	_, err := c.Load(context.Background(), api.BookingQuery{})
	require.NoError(t, err)

	require.NoError(t, c.Stage(1, "confirmed"))
	b, err := c.Save(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "confirmed", b.Status)
	assert.Equal(t, []string{"confirmed"}, be.updates)
	assert.Empty(t, c.Rows()[0].Draft)
	assert.Equal(t, "confirmed", c.Rows()[0].Status)
	assert.Equal(t, "pending", c.Rows()[0].PaymentStatus)
	assert.Equal(t, 2, be.lists)

	_, err = c.Save(context.Background(), 1)
	require.ErrorIs(t, err, ErrNoDraft)
	assert.Len(t, be.updates, 1)
}

func TestStageValidation(t *testing.T) {
	t.Parallel()

	c := New(newBackend(), answer(true))
	_, err := c.Load(context.Background(), api.BookingQuery{})
	require.NoError(t, err)

	require.Error(t, c.Stage(1, "paid"))
	require.ErrorIs(t, c.Stage(42, "confirmed"), ErrUnknownBooking)

	require.NoError(t, c.Stage(2, "confirmed"))
	require.NoError(t, c.Stage(2, "pending"))
	assert.Empty(t, c.Rows()[1].Draft)

	_, err = c.Load(context.Background(), api.BookingQuery{Status: "done"})
	require.Error(t, err)
}

func TestDeleteDeclinedSendsNothing(t *testing.T) {
	t.Parallel()

	be := newBackend()
	c := New(be, answer(false))
	_, err := c.Load(context.Background(), api.BookingQuery{})
	require.NoError(t, err)

	deleted, err := c.Delete(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Empty(t, be.deletes)
	assert.Len(t, c.Rows(), 2)
}

func TestDeleteConfirmedRemovesRow(t *testing.T) {
	t.Parallel()

	be := newBackend()
	c := New(be, answer(true))
	_, err := c.Load(context.Background(), api.BookingQuery{})
	require.NoError(t, err)

	deleted, err := c.Delete(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []int64{2}, be.deletes)

	rows := c.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ID)
}

func TestPromptConfirmer(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	yes, err := PromptConfirmer{In: strings.NewReader("Yes\n"), Out: &out}.Confirm("Delete?")
	require.NoError(t, err)
	assert.True(t, yes)
	assert.Equal(t, "Delete? [y/N]: ", out.String())

	no, err := PromptConfirmer{In: strings.NewReader(""), Out: &out}.Confirm("Delete?")
	require.NoError(t, err)
	assert.False(t, no)
}

func TestRenderShowsDraftAndPayment(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, []Row{{Booking: api.Booking{ID: 1, Name: "Anna", Status: "pending", PaymentStatus: "canceled"}, Draft: "confirmed"}}))
	assert.Contains(t, buf.String(), "pending -> confirmed (unsaved)")
	assert.Contains(t, buf.String(), "canceled")
}
