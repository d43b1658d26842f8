package repository

import (
	"context"
	"time"

	"github.com/atmanstudio/booking/internal/domain"
)

type ScheduleRepository interface {
	// ListSchedule returns events of active services, inactive and full ones
	// included, ordered by start time. An empty slug matches every service.
	ListSchedule(ctx context.Context, serviceSlug string) ([]domain.ScheduleEvent, error)
	GetScheduleEvent(ctx context.Context, id int64) (*domain.ScheduleEvent, error)
	CreateScheduleEvent(ctx context.Context, e domain.ScheduleEvent) (int64, error)
	// UpdateScheduleEvent leaves current_participants untouched.
	UpdateScheduleEvent(ctx context.Context, e domain.ScheduleEvent) error
	DeleteScheduleEvent(ctx context.Context, id int64) error

	// ReserveSeat atomically increments current_participants if a seat is free.
	// With requireActive an inactive event is rejected with ErrSlotInactive.
	ReserveSeat(ctx context.Context, id int64, requireActive bool) error
	// ReleaseSeat decrements current_participants, never below zero.
	ReleaseSeat(ctx context.Context, id int64) error

	GetService(ctx context.Context, id int64) (*domain.Service, error)
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, b domain.Booking) (int64, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error
	AttachPayment(ctx context.Context, id int64, paymentID, paymentStatus string, amount domain.Money, confirmationURL string) error
	UpdatePaymentSnapshot(ctx context.Context, id int64, paymentStatus string, paidAt *time.Time) error
	DeleteBooking(ctx context.Context, id int64) error
}

type PaymentRepository interface {
	CreatePayment(ctx context.Context, p domain.Payment) (int64, error)
	GetPaymentByProviderID(ctx context.Context, providerPaymentID string) (*domain.Payment, error)
	UpdatePayment(ctx context.Context, p domain.Payment) error
	AppendLog(ctx context.Context, paymentID int64, eventType string, payload []byte) error
}

// Repos groups the repositories bound to one connection or transaction.
type Repos interface {
	Schedule() ScheduleRepository
	Bookings() BookingRepository
	Payments() PaymentRepository
}

// Store is the persistence entry point used by services.
type Store interface {
	Repos
	// RunTx runs fn in a transaction. The transaction commits when fn returns nil.
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error
}
