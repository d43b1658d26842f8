package postgresrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/repository"
)

type BookingRepo struct {
	db DB
}

const bookingColumns = `b.id, b.schedule_event_id, b.name, b.phone, b.email, COALESCE(b.comment, ''),
	b.status, b.payment_status, COALESCE(b.payment_id, ''), COALESCE(b.payment_amount_cents, 0),
	COALESCE(b.payment_confirmation_url, ''), b.paid_at,
	e.service_id, s.title, e.start_time, b.created_at, b.updated_at`

const bookingFrom = `FROM bookings b
	JOIN schedule_events e ON e.id = b.schedule_event_id
	JOIN services s ON s.id = e.service_id`

func scanBooking(row rowScanner, b *domain.Booking) error {
	var (
		status string
		amount int64
		paidAt pgtype.Timestamptz
	)

	if err := row.Scan(
		&b.ID,
		&b.ScheduleEventID,
		&b.Name,
		&b.Phone,
		&b.Email,
		&b.Comment,
		&status,
		&b.PaymentStatus,
		&b.PaymentID,
		&amount,
		&b.PaymentConfirmationURL,
		&paidAt,
		&b.ServiceID,
		&b.ServiceTitle,
		&b.EventStartTime,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return err
	}

	b.Status = domain.BookingStatus(status)
	b.PaymentAmount = domain.Money(amount)
	if paidAt.Valid {
		t := paidAt.Time
		b.PaidAt = &t
	}

	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *BookingRepo) CreateBooking(ctx context.Context, b domain.Booking) (int64, error) {
	const op = "postgresrepo.BookingRepo.CreateBooking"

	var id int64
	if err := r.db.QueryRow(ctx,
		`INSERT INTO bookings(schedule_event_id, name, phone, email, comment, status, payment_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		b.ScheduleEventID, b.Name, b.Phone, b.Email, nullIfEmpty(b.Comment),
		string(b.Status), b.PaymentStatus,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *BookingRepo) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.GetBooking"

	var b domain.Booking
	if err := scanBooking(r.db.QueryRow(ctx,
		`SELECT `+bookingColumns+` `+bookingFrom+` WHERE b.id = $1`,
		id,
	), &b); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

// escapeLike escapes LIKE wildcards so search terms match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListBookings returns bookings matching f, newest first.
//
// Parameters:
//   - f.Status: exact status match when set.
//   - f.ServiceID: service of the booked event when non-zero.
//   - f.Search: case-insensitive substring of name, phone, email or payment id.
//   - f.DateFrom, f.DateTo: inclusive bounds on the event start time.
func (r *BookingRepo) ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.ListBookings"

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		where = append(where, "b.status = "+arg(string(f.Status)))
	}
	if f.ServiceID != 0 {
		where = append(where, "e.service_id = "+arg(f.ServiceID))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		p := arg("%" + escapeLike(q) + "%")
		where = append(where, fmt.Sprintf(
			"(b.name ILIKE %[1]s OR b.phone ILIKE %[1]s OR b.email ILIKE %[1]s OR COALESCE(b.payment_id, '') ILIKE %[1]s)",
			p,
		))
	}
	if f.DateFrom != nil {
		where = append(where, "e.start_time >= "+arg(*f.DateFrom))
	}
	if f.DateTo != nil {
		where = append(where, "e.start_time <= "+arg(*f.DateTo))
	}

	sql := `SELECT ` + bookingColumns + ` ` + bookingFrom
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY b.created_at DESC, b.id DESC`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []domain.Booking{}
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *BookingRepo) UpdateBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	const op = "postgresrepo.BookingRepo.UpdateBookingStatus"

	tag, err := r.db.Exec(ctx,
		`UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *BookingRepo) AttachPayment(
	ctx context.Context,
	id int64,
	paymentID, paymentStatus string,
	amount domain.Money,
	confirmationURL string,
) error {
	const op = "postgresrepo.BookingRepo.AttachPayment"

	tag, err := r.db.Exec(ctx,
		`UPDATE bookings
		 SET payment_id = $2, payment_status = $3, payment_amount_cents = $4,
		 	payment_confirmation_url = $5, updated_at = now()
		 WHERE id = $1`,
		id, paymentID, paymentStatus, int64(amount), nullIfEmpty(confirmationURL),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// UpdatePaymentSnapshot stores the latest provider status. A nil paidAt keeps
// the recorded payment time.
func (r *BookingRepo) UpdatePaymentSnapshot(ctx context.Context, id int64, paymentStatus string, paidAt *time.Time) error {
	const op = "postgresrepo.BookingRepo.UpdatePaymentSnapshot"

	tag, err := r.db.Exec(ctx,
		`UPDATE bookings
		 SET payment_status = $2, paid_at = COALESCE($3, paid_at), updated_at = now()
		 WHERE id = $1`,
		id, paymentStatus, paidAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *BookingRepo) DeleteBooking(ctx context.Context, id int64) error {
	const op = "postgresrepo.BookingRepo.DeleteBooking"

	tag, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
