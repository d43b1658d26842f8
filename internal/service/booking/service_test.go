package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/payment"
	"github.com/atmanstudio/booking/internal/repository/memory"
	redisrepo "github.com/atmanstudio/booking/internal/repository/redis"
)

type fakeProvider struct {
	mu       sync.Mutex
	requests []payment.CreateRequest
	err      error
	// id, if set, is returned as the provider payment id of every payment.
	id string
	// hangUp cancels the caller's context and fails the call, like a client
	// disconnecting while the provider is being called.
	hangUp context.CancelFunc
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) CreatePayment(ctx context.Context, req payment.CreateRequest) (*payment.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	if p.hangUp != nil {
		p.hangUp()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	id := p.id
	if id == "" {
		id = "pay-" + req.IdempotenceKey
	}
	return &payment.Result{
		ID:              id,
		Status:          domain.PaymentPending,
		ConfirmationURL: "https://pay.example/x",
		Payload:         []byte(`{}`),
	}, nil
}

func (p *fakeProvider) GetPayment(context.Context, string) (*payment.Result, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeProvider) ParseWebhook([]byte, string) (*payment.Notification, error) {
	return nil, errors.New("not implemented")
}

var start = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

func price(v domain.Money) *domain.Money { return &v }

type fixture struct {
	store *memory.Store
	event int64
}

func newFixture(t *testing.T, pricing domain.Pricing, max, cur int, active bool) fixture {
	t.Helper()

	s := memory.NewStore()
	svc := s.SeedService(domain.Service{Slug: "yoga", Title: "Yoga", Pricing: pricing, IsActive: true})
	eid := s.SeedEvent(domain.ScheduleEvent{
		ServiceID:           svc,
		StartTime:           start,
		EndTime:             start.Add(time.Hour),
		MaxParticipants:     max,
		CurrentParticipants: cur,
		IsActive:            active,
	})

	return fixture{store: s, event: eid}
}

func (f fixture) current(t *testing.T) int {
	t.Helper()
	e, err := f.store.Schedule().GetScheduleEvent(context.Background(), f.event)
	require.NoError(t, err)
	return e.CurrentParticipants
}

func validBooking(eventID int64) domain.NewBooking {
	return domain.NewBooking{
		ScheduleEventID: eventID,
		Contact: domain.Contact{
			Name:  " Anna ",
			Phone: "+7 900 000-00-00",
			Email: "anna@example.com",
		},
		Consent: domain.Consent{PrivacyPolicy: true, PersonalData: true, Terms: true},
	}
}

var paidPricing = domain.Pricing{Group: &domain.GroupPrice{PricePerPerson: price(250000)}}

func TestCreateRejectsBeforeWriting(t *testing.T) {
	t.Parallel()

	f := newFixture(t, paidPricing, 3, 0, true)
	p := &fakeProvider{}
	svc := New(f.store, p, nil, nil, nil)

	noConsent := validBooking(f.event)
	noConsent.Consent.Terms = false
	_, err := svc.Create(context.Background(), noConsent, "")
	require.ErrorIs(t, err, ErrConsentRequired)

	noPhone := validBooking(f.event)
	noPhone.Contact.Phone = "   "
	_, err = svc.Create(context.Background(), noPhone, "")
	require.ErrorIs(t, err, ErrInvalidContact)

	var ce ContactError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "phone", ce.Field)

	assert.Equal(t, 0, f.current(t))
	assert.Empty(t, p.requests)
}

func TestCreatePaidBooking(t *testing.T) {
	t.Parallel()

	f := newFixture(t, paidPricing, 3, 0, true)
	p := &fakeProvider{}
	svc := New(f.store, p, nil, nil, nil)

	r, err := svc.Create(context.Background(), validBooking(f.event), "")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusWaitingPayment, r.Status)
	assert.Equal(t, "https://pay.example/x", r.ConfirmationURL)
	assert.Equal(t, MessageWaitingPayment, r.Message)
	assert.Equal(t, 1, f.current(t))

	require.Len(t, p.requests, 1)
	assert.Equal(t, domain.Money(250000), p.requests[0].Amount)
	assert.NotEmpty(t, p.requests[0].IdempotenceKey)

	b, err := f.store.Bookings().GetBooking(context.Background(), r.BookingID)
	require.NoError(t, err)
	assert.Equal(t, "Anna", b.Name)
	assert.Equal(t, r.PaymentID, b.PaymentID)
	assert.Equal(t, domain.Money(250000), b.PaymentAmount)

	pay, err := f.store.Payments().GetPaymentByProviderID(context.Background(), r.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, r.BookingID, pay.BookingID)
	assert.Equal(t, 1, f.store.PaymentLogCount(pay.ID))
}

func TestCreateUnpricedBookingIsPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t, domain.Pricing{}, 3, 0, true)
	p := &fakeProvider{}
	svc := New(f.store, p, nil, nil, nil)

	r, err := svc.Create(context.Background(), validBooking(f.event), "")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, r.Status)
	assert.Empty(t, r.ConfirmationURL)
	assert.Equal(t, MessagePending, r.Message)
	assert.Empty(t, p.requests)
	assert.Equal(t, 1, f.current(t))
}

func TestCreateWithoutProviderIsPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t, paidPricing, 3, 0, true)
	svc := New(f.store, nil, nil, nil, nil)

	r, err := svc.Create(context.Background(), validBooking(f.event), "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, r.Status)
}

func TestCreateSlotErrors(t *testing.T) {
	t.Parallel()

	full := newFixture(t, paidPricing, 2, 2, true)
	_, err := New(full.store, nil, nil, nil, nil).Create(context.Background(), validBooking(full.event), "")
	require.ErrorIs(t, err, ErrNoSeats)
	assert.Equal(t, 2, full.current(t))

	inactive := newFixture(t, paidPricing, 2, 0, false)
	_, err = New(inactive.store, nil, nil, nil, nil).Create(context.Background(), validBooking(inactive.event), "")
	require.ErrorIs(t, err, ErrSlotInactive)
	assert.Equal(t, 0, inactive.current(t))

	_, err = New(inactive.store, nil, nil, nil, nil).Create(context.Background(), validBooking(9999), "")
	require.ErrorIs(t, err, ErrSlotNotFound)
}

func TestCreatePaymentFailureReleasesSeat(t *testing.T) {
	t.Parallel()

	f := newFixture(t, paidPricing, 1, 0, true)
	p := &fakeProvider{err: payment.ErrUnavailable}
	svc := New(f.store, p, nil, nil, nil)

	_, err := svc.Create(context.Background(), validBooking(f.event), "")
	require.ErrorIs(t, err, ErrPaymentUnavailable)
	assert.Equal(t, 0, f.current(t))

	list, err := f.store.Bookings().ListBookings(context.Background(), domain.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.StatusCancelled, list[0].Status)
	assert.Equal(t, domain.PaymentFailed, list[0].PaymentStatus)
}

func TestCreateReleasesSeatWhenClientHangsUp(t *testing.T) {
	t.Parallel()

	f := newFixture(t, paidPricing, 1, 0, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := New(f.store, &fakeProvider{hangUp: cancel}, nil, nil, nil)

	_, err := svc.Create(ctx, validBooking(f.event), "")
	require.ErrorIs(t, err, ErrPaymentUnavailable)
	assert.Equal(t, 0, f.current(t))

	list, err := f.store.Bookings().ListBookings(context.Background(), domain.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.StatusCancelled, list[0].Status)
	assert.Empty(t, list[0].PaymentID)
}

func TestCreateReleasesSeatWhenPaymentCannotBeRecorded(t *testing.T) {
	t.Parallel()

	f := newFixture(t, paidPricing, 2, 0, true)
	svc := New(f.store, &fakeProvider{id: "pay-same"}, nil, nil, nil)

	first, err := svc.Create(context.Background(), validBooking(f.event), "")
	require.NoError(t, err)
	assert.Equal(t, 1, f.current(t))

	_, err = svc.Create(context.Background(), validBooking(f.event), "")
	require.ErrorIs(t, err, ErrPaymentUnavailable)
	assert.Equal(t, 1, f.current(t))

	list, err := f.store.Bookings().ListBookings(context.Background(), domain.BookingFilter{Status: domain.StatusCancelled})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotEqual(t, first.BookingID, list[0].ID)
	assert.Equal(t, domain.PaymentFailed, list[0].PaymentStatus)
}

func TestCreateRejectsIndividualSlot(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	svc := s.SeedService(domain.Service{
		Slug:     "personal",
		Title:    "Personal session",
		IsActive: true,
		Pricing:  domain.Pricing{Individual: &domain.PriceEntry{Price: price(350000)}},
	})
	eid := s.SeedEvent(domain.ScheduleEvent{
		ServiceID:       svc,
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
		MaxParticipants: 1,
		IsIndividual:    true,
		IsActive:        true,
	})
	f := fixture{store: s, event: eid}
	p := &fakeProvider{}

	_, err := New(s, p, nil, nil, nil).Create(context.Background(), validBooking(eid), "")
	require.ErrorIs(t, err, ErrIndividualSlot)
	assert.Equal(t, 0, f.current(t))
	assert.Empty(t, p.requests)

	list, err := s.Bookings().ListBookings(context.Background(), domain.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConcurrentBookersNeverOverbook(t *testing.T) {
	t.Parallel()

	f := newFixture(t, domain.Pricing{}, 3, 0, true)
	svc := New(f.store, nil, nil, nil, nil)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(context.Background(), validBooking(f.event), ""); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrNoSeats)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 3, f.current(t))
}

func TestCreateRateLimited(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFixture(t, domain.Pricing{}, 10, 0, true)
	limiter := redisrepo.NewLimiter(rdb, redisrepo.KeyRateLimit("bookings"), 1, time.Minute)
	svc := New(f.store, nil, limiter, nil, nil)

	_, err := svc.Create(context.Background(), validBooking(f.event), "ip:1")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validBooking(f.event), "ip:1")
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, f.current(t))
}
