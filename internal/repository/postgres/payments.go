package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/repository"
)

type PaymentRepo struct {
	db DB
}

func payloadOrEmpty(b []byte) []byte {
	if len(b) == 0 {
		return []byte("{}")
	}
	return b
}

func (r *PaymentRepo) CreatePayment(ctx context.Context, p domain.Payment) (int64, error) {
	const op = "postgresrepo.PaymentRepo.CreatePayment"

	var id int64
	if err := r.db.QueryRow(ctx,
		`INSERT INTO payments(booking_id, provider, provider_payment_id, amount_cents, currency,
		 	status, payment_method, confirmation_url, paid_at, raw_payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		p.BookingID, p.Provider, p.ProviderPaymentID, int64(p.Amount), p.Currency,
		p.Status, nullIfEmpty(p.PaymentMethod), nullIfEmpty(p.ConfirmationURL), p.PaidAt,
		payloadOrEmpty(p.RawPayload),
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *PaymentRepo) GetPaymentByProviderID(ctx context.Context, providerPaymentID string) (*domain.Payment, error) {
	const op = "postgresrepo.PaymentRepo.GetPaymentByProviderID"

	var (
		p      domain.Payment
		amount int64
		paidAt pgtype.Timestamptz
	)
	if err := r.db.QueryRow(ctx,
		`SELECT id, booking_id, provider, provider_payment_id, amount_cents, currency, status,
		 	COALESCE(payment_method, ''), COALESCE(confirmation_url, ''), paid_at, raw_payload, created_at
		 FROM payments
		 WHERE provider_payment_id = $1`,
		providerPaymentID,
	).Scan(
		&p.ID,
		&p.BookingID,
		&p.Provider,
		&p.ProviderPaymentID,
		&amount,
		&p.Currency,
		&p.Status,
		&p.PaymentMethod,
		&p.ConfirmationURL,
		&paidAt,
		&p.RawPayload,
		&p.CreatedAt,
	); err != nil {
		return nil, wrapDBErr(op, err)
	}

	p.Amount = domain.Money(amount)
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}

	return &p, nil
}

// UpdatePayment stores the provider status, method, payment time and payload
// of an existing payment row.
func (r *PaymentRepo) UpdatePayment(ctx context.Context, p domain.Payment) error {
	const op = "postgresrepo.PaymentRepo.UpdatePayment"

	tag, err := r.db.Exec(ctx,
		`UPDATE payments
		 SET status = $2, payment_method = COALESCE($3, payment_method),
		 	paid_at = COALESCE($4, paid_at), raw_payload = $5, updated_at = now()
		 WHERE id = $1`,
		p.ID, p.Status, nullIfEmpty(p.PaymentMethod), p.PaidAt, payloadOrEmpty(p.RawPayload),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *PaymentRepo) AppendLog(ctx context.Context, paymentID int64, eventType string, payload []byte) error {
	const op = "postgresrepo.PaymentRepo.AppendLog"

	if _, err := r.db.Exec(ctx,
		`INSERT INTO payment_logs(payment_id, event_type, payload) VALUES ($1, $2, $3)`,
		paymentID, eventType, payloadOrEmpty(payload),
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}
