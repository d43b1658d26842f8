package payments

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/payment/yookassa"
	"github.com/atmanstudio/booking/internal/repository/memory"
)

const (
	providerID    = "pay-1"
	webhookSecret = "whsec"
	returnURL     = "https://studio.example"
)

type fixture struct {
	store    *memory.Store
	event    int64
	booking  int64
	payment  int64
	status   atomic.Value
	requests atomic.Int32
	svc      *Service
}

func newFixture(t *testing.T, bookingStatus domain.BookingStatus, cur int) *fixture {
	t.Helper()

	f := &fixture{store: memory.NewStore()}
	f.status.Store(domain.PaymentPending)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		_, _ = fmt.Fprintf(w, `{"id":%q,"status":%q}`, providerID, f.status.Load().(string))
	}))
	t.Cleanup(srv.Close)

	svc := f.store.SeedService(domain.Service{Slug: "yoga", Title: "Yoga", IsActive: true})
	start := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	f.event = f.store.SeedEvent(domain.ScheduleEvent{
		ServiceID:           svc,
		StartTime:           start,
		EndTime:             start.Add(time.Hour),
		MaxParticipants:     2,
		CurrentParticipants: cur,
		IsActive:            true,
	})

	ctx := context.Background()
	var err error
	f.booking, err = f.store.Bookings().CreateBooking(ctx, domain.Booking{
		ScheduleEventID: f.event,
		Contact:         domain.Contact{Name: "Anna", Phone: "1", Email: "a@example.com"},
		Status:          bookingStatus,
	})
	require.NoError(t, err)

	f.payment, err = f.store.Payments().CreatePayment(ctx, domain.Payment{
		BookingID:         f.booking,
		Provider:          yookassa.ProviderName,
		ProviderPaymentID: providerID,
		Amount:            250000,
		Currency:          "RUB",
		Status:            domain.PaymentPending,
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Bookings().AttachPayment(ctx, f.booking, providerID, domain.PaymentPending, 250000, ""))

	client := yookassa.New(yookassa.Config{
		ShopID:        "shop",
		SecretKey:     "key",
		WebhookSecret: webhookSecret,
		APIBase:       srv.URL,
	})
	f.svc = New(f.store, client, nil, nil, Config{ReturnURL: returnURL})

	return f
}

func (f *fixture) booked(t *testing.T) (*domain.Booking, int) {
	t.Helper()

	b, err := f.store.Bookings().GetBooking(context.Background(), f.booking)
	require.NoError(t, err)
	e, err := f.store.Schedule().GetScheduleEvent(context.Background(), f.event)
	require.NoError(t, err)

	return b, e.CurrentParticipants
}

func TestCheckStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		provider    string
		wantBooking domain.BookingStatus
		wantCur     int
		wantURL     string
	}{
		{name: "still pending", provider: domain.PaymentPending, wantBooking: domain.StatusWaitingPayment, wantCur: 1, wantURL: returnURL + "/payment/waiting?payment_id=" + providerID},
		{name: "succeeded confirms", provider: domain.PaymentSucceeded, wantBooking: domain.StatusConfirmed, wantCur: 1, wantURL: returnURL + "/payment/success?payment_id=" + providerID},
		{name: "canceled cancels and releases", provider: domain.PaymentCanceled, wantBooking: domain.StatusCancelled, wantCur: 0, wantURL: returnURL + "/payment/failed?payment_id=" + providerID},
		{name: "unknown status leaves booking", provider: "refund_pending", wantBooking: domain.StatusWaitingPayment, wantCur: 1, wantURL: returnURL + "/payment/waiting?payment_id=" + providerID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, domain.StatusWaitingPayment, 1)
			f.status.Store(tc.provider)

			snap, err := f.svc.CheckStatus(context.Background(), providerID)
			require.NoError(t, err)

			assert.Equal(t, tc.provider, snap.Status)
			assert.Equal(t, tc.wantBooking, snap.BookingStatus)
			assert.Equal(t, tc.wantURL, snap.RedirectURL)

			b, cur := f.booked(t)
			assert.Equal(t, tc.wantBooking, b.Status)
			assert.Equal(t, tc.provider, b.PaymentStatus)
			assert.Equal(t, tc.wantCur, cur)
			assert.Equal(t, 1, f.store.PaymentLogCount(f.payment))
		})
	}
}

func TestCheckStatusIsIdempotentForLedger(t *testing.T) {
	t.Parallel()

	f := newFixture(t, domain.StatusWaitingPayment, 1)
	f.status.Store(domain.PaymentCanceled)

	for i := 0; i < 3; i++ {
		_, err := f.svc.CheckStatus(context.Background(), providerID)
		require.NoError(t, err)
	}

	b, cur := f.booked(t)
	assert.Equal(t, domain.StatusCancelled, b.Status)
	assert.Equal(t, 0, cur)
	assert.Equal(t, 3, f.store.PaymentLogCount(f.payment))
}

func TestSucceededAfterAdminCancelKeepsBooking(t *testing.T) {
	t.Parallel()

	f := newFixture(t, domain.StatusCancelled, 0)
	f.status.Store(domain.PaymentSucceeded)

	snap, err := f.svc.CheckStatus(context.Background(), providerID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, snap.BookingStatus)

	b, cur := f.booked(t)
	assert.Equal(t, domain.StatusCancelled, b.Status)
	assert.Equal(t, domain.PaymentSucceeded, b.PaymentStatus)
	assert.Equal(t, 0, cur)
}

func TestCheckStatusUnknownPayment(t *testing.T) {
	t.Parallel()

	f := newFixture(t, domain.StatusWaitingPayment, 1)

	_, err := f.svc.CheckStatus(context.Background(), "nope")
	require.ErrorIs(t, err, ErrPaymentNotFound)
	assert.Zero(t, f.requests.Load())
}

func TestCheckStatusDisabled(t *testing.T) {
	t.Parallel()

	svc := New(memory.NewStore(), nil, nil, nil, Config{})
	_, err := svc.CheckStatus(context.Background(), providerID)
	require.ErrorIs(t, err, ErrPaymentsDisabled)
}

func TestHandleWebhook(t *testing.T) {
	t.Parallel()

	body := []byte(`{"type":"notification","event":"payment.succeeded","object":{"id":"pay-1","status":"succeeded","payment_method":{"type":"sbp"}}}`)

	f := newFixture(t, domain.StatusWaitingPayment, 1)

	err := f.svc.HandleWebhook(context.Background(), body, "bad")
	require.ErrorIs(t, err, ErrInvalidSignature)

	b, _ := f.booked(t)
	assert.Equal(t, domain.StatusWaitingPayment, b.Status)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, yookassa.Sign(webhookSecret, body)))

	b, cur := f.booked(t)
	assert.Equal(t, domain.StatusConfirmed, b.Status)
	assert.Equal(t, 1, cur)

	p, err := f.store.Payments().GetPaymentByProviderID(context.Background(), providerID)
	require.NoError(t, err)
	assert.Equal(t, "sbp", p.PaymentMethod)
	assert.Equal(t, domain.PaymentSucceeded, p.Status)
	assert.Zero(t, f.requests.Load())
}

func TestHandleWebhookMalformed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, domain.StatusWaitingPayment, 1)
	body := []byte(`{"event":"payment.succeeded"}`)

	err := f.svc.HandleWebhook(context.Background(), body, yookassa.Sign(webhookSecret, body))
	require.ErrorIs(t, err, ErrMalformedWebhook)
}
