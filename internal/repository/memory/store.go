// Package memory is an in-process repository.Store used for tests and for
// running the service without postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/repository"
)

type paymentLog struct {
	PaymentID int64
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

type state struct {
	services map[int64]domain.Service
	events   map[int64]domain.ScheduleEvent
	bookings map[int64]domain.Booking
	payments map[int64]domain.Payment
	logs     []paymentLog
	seq      int64
}

func newState() *state {
	return &state{
		services: map[int64]domain.Service{},
		events:   map[int64]domain.ScheduleEvent{},
		bookings: map[int64]domain.Booking{},
		payments: map[int64]domain.Payment{},
	}
}

func (s *state) clone() *state {
	c := &state{
		services: make(map[int64]domain.Service, len(s.services)),
		events:   make(map[int64]domain.ScheduleEvent, len(s.events)),
		bookings: make(map[int64]domain.Booking, len(s.bookings)),
		payments: make(map[int64]domain.Payment, len(s.payments)),
		logs:     append([]paymentLog(nil), s.logs...),
		seq:      s.seq,
	}
	for k, v := range s.services {
		c.services[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	return c
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store keeps all data in memory. Transactions run serially against a copy
// of the state which replaces the committed state on success.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		st:  newState(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	if err := fn(ctx, &txRepos{st: work, now: s.now}); err != nil {
		return err
	}

	s.st = work
	return nil
}

func (s *Store) Schedule() repository.ScheduleRepository {
	return &scheduleRepo{locked: s.locked}
}

func (s *Store) Bookings() repository.BookingRepository {
	return &bookingRepo{locked: s.locked}
}

func (s *Store) Payments() repository.PaymentRepository {
	return &paymentRepo{locked: s.locked}
}

// locked runs fn against the committed state under the store lock.
func (s *Store) locked(fn func(st *state, now time.Time) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st, s.now())
}

// SeedService adds a service and returns its id.
func (s *Store) SeedService(svc domain.Service) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc.ID == 0 {
		svc.ID = s.st.nextID()
	}
	s.st.services[svc.ID] = svc
	return svc.ID
}

// SeedEvent adds a schedule event and returns its id.
func (s *Store) SeedEvent(e domain.ScheduleEvent) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == 0 {
		e.ID = s.st.nextID()
	}
	now := s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	s.st.events[e.ID] = e
	return e.ID
}

// PaymentLogCount returns how many log entries exist for a payment row.
func (s *Store) PaymentLogCount(paymentID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, l := range s.st.logs {
		if l.PaymentID == paymentID {
			n++
		}
	}
	return n
}

type txRepos struct {
	st  *state
	now func() time.Time
}

func (t *txRepos) locked(fn func(st *state, now time.Time) error) error {
	return fn(t.st, t.now())
}

func (t *txRepos) Schedule() repository.ScheduleRepository {
	return &scheduleRepo{locked: t.locked}
}

func (t *txRepos) Bookings() repository.BookingRepository {
	return &bookingRepo{locked: t.locked}
}

func (t *txRepos) Payments() repository.PaymentRepository {
	return &paymentRepo{locked: t.locked}
}

type accessor func(fn func(st *state, now time.Time) error) error

func withService(st *state, e domain.ScheduleEvent) domain.ScheduleEvent {
	if svc, ok := st.services[e.ServiceID]; ok {
		e.ServiceSlug = svc.Slug
		e.ServiceTitle = svc.Title
	}
	return e
}

func withEvent(st *state, b domain.Booking) domain.Booking {
	if e, ok := st.events[b.ScheduleEventID]; ok {
		b.ServiceID = e.ServiceID
		b.EventStartTime = e.StartTime
		if svc, ok := st.services[e.ServiceID]; ok {
			b.ServiceTitle = svc.Title
		}
	}
	return b
}

type scheduleRepo struct {
	locked accessor
}

func (r *scheduleRepo) ListSchedule(_ context.Context, serviceSlug string) ([]domain.ScheduleEvent, error) {
	out := []domain.ScheduleEvent{}
	err := r.locked(func(st *state, _ time.Time) error {
		for _, e := range st.events {
			svc, ok := st.services[e.ServiceID]
			if !ok || !svc.IsActive {
				continue
			}
			if serviceSlug != "" && svc.Slug != serviceSlug {
				continue
			}
			out = append(out, withService(st, e))
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})

	return out, err
}

func (r *scheduleRepo) GetScheduleEvent(_ context.Context, id int64) (*domain.ScheduleEvent, error) {
	var out domain.ScheduleEvent
	err := r.locked(func(st *state, _ time.Time) error {
		e, ok := st.events[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = withService(st, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func checkEvent(st *state, e domain.ScheduleEvent) error {
	if _, ok := st.services[e.ServiceID]; !ok {
		return repository.ErrReferenced
	}
	if e.MaxParticipants < 1 || e.CurrentParticipants < 0 ||
		e.CurrentParticipants > e.MaxParticipants || !e.EndTime.After(e.StartTime) {
		return repository.ErrConflict
	}
	return nil
}

func (r *scheduleRepo) CreateScheduleEvent(_ context.Context, e domain.ScheduleEvent) (int64, error) {
	var id int64
	err := r.locked(func(st *state, now time.Time) error {
		if err := checkEvent(st, e); err != nil {
			return err
		}
		e.ID = st.nextID()
		e.CreatedAt, e.UpdatedAt = now, now
		st.events[e.ID] = e
		id = e.ID
		return nil
	})
	return id, err
}

func (r *scheduleRepo) UpdateScheduleEvent(_ context.Context, e domain.ScheduleEvent) error {
	return r.locked(func(st *state, now time.Time) error {
		cur, ok := st.events[e.ID]
		if !ok {
			return repository.ErrNotFound
		}
		e.CurrentParticipants = cur.CurrentParticipants
		if err := checkEvent(st, e); err != nil {
			return err
		}
		e.CreatedAt = cur.CreatedAt
		e.UpdatedAt = now
		st.events[e.ID] = e
		return nil
	})
}

func (r *scheduleRepo) DeleteScheduleEvent(_ context.Context, id int64) error {
	return r.locked(func(st *state, _ time.Time) error {
		if _, ok := st.events[id]; !ok {
			return repository.ErrNotFound
		}
		for _, b := range st.bookings {
			if b.ScheduleEventID == id {
				return repository.ErrReferenced
			}
		}
		delete(st.events, id)
		return nil
	})
}

func (r *scheduleRepo) ReserveSeat(_ context.Context, id int64, requireActive bool) error {
	return r.locked(func(st *state, now time.Time) error {
		e, ok := st.events[id]
		if !ok {
			return repository.ErrNotFound
		}
		if requireActive && !e.IsActive {
			return repository.ErrSlotInactive
		}
		if e.CurrentParticipants >= e.MaxParticipants {
			return repository.ErrNoSeatsAvailable
		}
		e.CurrentParticipants++
		e.UpdatedAt = now
		st.events[id] = e
		return nil
	})
}

func (r *scheduleRepo) ReleaseSeat(_ context.Context, id int64) error {
	return r.locked(func(st *state, now time.Time) error {
		e, ok := st.events[id]
		if !ok {
			return repository.ErrNotFound
		}
		if e.CurrentParticipants > 0 {
			e.CurrentParticipants--
		}
		e.UpdatedAt = now
		st.events[id] = e
		return nil
	})
}

func (r *scheduleRepo) GetService(_ context.Context, id int64) (*domain.Service, error) {
	var out domain.Service
	err := r.locked(func(st *state, _ time.Time) error {
		svc, ok := st.services[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = svc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type bookingRepo struct {
	locked accessor
}

func (r *bookingRepo) CreateBooking(_ context.Context, b domain.Booking) (int64, error) {
	var id int64
	err := r.locked(func(st *state, now time.Time) error {
		if _, ok := st.events[b.ScheduleEventID]; !ok {
			return repository.ErrReferenced
		}
		if !b.Status.Valid() {
			return repository.ErrConflict
		}
		b.ID = st.nextID()
		b.CreatedAt, b.UpdatedAt = now, now
		st.bookings[b.ID] = b
		id = b.ID
		return nil
	})
	return id, err
}

func (r *bookingRepo) GetBooking(_ context.Context, id int64) (*domain.Booking, error) {
	var out domain.Booking
	err := r.locked(func(st *state, _ time.Time) error {
		b, ok := st.bookings[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = withEvent(st, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func matchesSearch(b domain.Booking, q string) bool {
	q = strings.ToLower(q)
	for _, s := range []string{b.Name, b.Phone, b.Email, b.PaymentID} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

func (r *bookingRepo) ListBookings(_ context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	out := []domain.Booking{}
	err := r.locked(func(st *state, _ time.Time) error {
		for _, b := range st.bookings {
			b = withEvent(st, b)
			if f.Status != "" && b.Status != f.Status {
				continue
			}
			if f.ServiceID != 0 && b.ServiceID != f.ServiceID {
				continue
			}
			if q := strings.TrimSpace(f.Search); q != "" && !matchesSearch(b, q) {
				continue
			}
			if f.DateFrom != nil && b.EventStartTime.Before(*f.DateFrom) {
				continue
			}
			if f.DateTo != nil && b.EventStartTime.After(*f.DateTo) {
				continue
			}
			out = append(out, b)
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, err
}

func (r *bookingRepo) update(id int64, fn func(b *domain.Booking)) error {
	return r.locked(func(st *state, now time.Time) error {
		b, ok := st.bookings[id]
		if !ok {
			return repository.ErrNotFound
		}
		fn(&b)
		b.UpdatedAt = now
		st.bookings[id] = b
		return nil
	})
}

func (r *bookingRepo) UpdateBookingStatus(_ context.Context, id int64, status domain.BookingStatus) error {
	if !status.Valid() {
		return repository.ErrConflict
	}
	return r.update(id, func(b *domain.Booking) {
		b.Status = status
	})
}

func (r *bookingRepo) AttachPayment(
	_ context.Context,
	id int64,
	paymentID, paymentStatus string,
	amount domain.Money,
	confirmationURL string,
) error {
	return r.update(id, func(b *domain.Booking) {
		b.PaymentID = paymentID
		b.PaymentStatus = paymentStatus
		b.PaymentAmount = amount
		b.PaymentConfirmationURL = confirmationURL
	})
}

func (r *bookingRepo) UpdatePaymentSnapshot(_ context.Context, id int64, paymentStatus string, paidAt *time.Time) error {
	return r.update(id, func(b *domain.Booking) {
		b.PaymentStatus = paymentStatus
		if paidAt != nil {
			t := *paidAt
			b.PaidAt = &t
		}
	})
}

func (r *bookingRepo) DeleteBooking(_ context.Context, id int64) error {
	return r.locked(func(st *state, _ time.Time) error {
		if _, ok := st.bookings[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.bookings, id)
		for pid, p := range st.payments {
			if p.BookingID == id {
				delete(st.payments, pid)
			}
		}
		return nil
	})
}

type paymentRepo struct {
	locked accessor
}

func (r *paymentRepo) CreatePayment(_ context.Context, p domain.Payment) (int64, error) {
	var id int64
	err := r.locked(func(st *state, now time.Time) error {
		if _, ok := st.bookings[p.BookingID]; !ok {
			return repository.ErrReferenced
		}
		for _, cur := range st.payments {
			if cur.BookingID == p.BookingID || cur.ProviderPaymentID == p.ProviderPaymentID {
				return repository.ErrConflict
			}
		}
		p.ID = st.nextID()
		p.CreatedAt = now
		st.payments[p.ID] = p
		id = p.ID
		return nil
	})
	return id, err
}

func (r *paymentRepo) GetPaymentByProviderID(_ context.Context, providerPaymentID string) (*domain.Payment, error) {
	var out domain.Payment
	err := r.locked(func(st *state, _ time.Time) error {
		for _, p := range st.payments {
			if p.ProviderPaymentID == providerPaymentID {
				out = p
				return nil
			}
		}
		return repository.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *paymentRepo) UpdatePayment(_ context.Context, p domain.Payment) error {
	return r.locked(func(st *state, _ time.Time) error {
		cur, ok := st.payments[p.ID]
		if !ok {
			return repository.ErrNotFound
		}
		cur.Status = p.Status
		if p.PaymentMethod != "" {
			cur.PaymentMethod = p.PaymentMethod
		}
		if p.PaidAt != nil {
			t := *p.PaidAt
			cur.PaidAt = &t
		}
		cur.RawPayload = append([]byte(nil), p.RawPayload...)
		st.payments[p.ID] = cur
		return nil
	})
}

func (r *paymentRepo) AppendLog(_ context.Context, paymentID int64, eventType string, payload []byte) error {
	return r.locked(func(st *state, now time.Time) error {
		if _, ok := st.payments[paymentID]; !ok {
			return repository.ErrReferenced
		}
		st.logs = append(st.logs, paymentLog{
			PaymentID: paymentID,
			EventType: eventType,
			Payload:   append([]byte(nil), payload...),
			CreatedAt: now,
		})
		return nil
	})
}
