package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/railway-ticket-booking/internal/model"
)

// PaymentRepo provides persistence for payment records.  Payments are
// keyed by the opaque reference exchanged with the external gateway;
// the unique index on reference is what makes replayed gateway
// notifications converge on a single row.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// DB exposes the underlying handle so the reconciler can open the
// transaction that spans the payment and booking mutations.
func (r *PaymentRepo) DB() *sql.DB { return r.db }

// Create inserts a pending payment for a booking.  The generated ID
// is populated on the passed structure.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_id, reference, amount, status) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.BookingID, p.Reference, p.Amount, p.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByReferenceTx loads the payment for a gateway reference and
// locks its row for the remainder of the transaction.  The redirect
// callback and the webhook can race to reconcile the same reference;
// whichever transaction wins the lock performs the confirmation and
// the loser observes the already-successful state.  Returns
// ErrPaymentNotFound when the reference is unknown.
func (r *PaymentRepo) GetByReferenceTx(ctx context.Context, tx *sql.Tx, reference string) (*model.Payment, error) {
	const q = `SELECT id, booking_id, reference, amount, status, created_at
	           FROM payments WHERE reference = ? FOR UPDATE`
	var p model.Payment
	err := tx.QueryRowContext(ctx, q, reference).Scan(
		&p.ID, &p.BookingID, &p.Reference, &p.Amount, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// MarkSuccessfulTx flips a payment to successful inside the
// reconciliation transaction.
func (r *PaymentRepo) MarkSuccessfulTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `UPDATE payments SET status = 'successful' WHERE id = ?`, id)
	return err
}

// MarkFailed records a terminal gateway failure.  This runs outside
// any transaction because nothing else changes with it.
func (r *PaymentRepo) MarkFailed(ctx context.Context, reference string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = 'failed' WHERE reference = ? AND status = 'pending'`, reference)
	return err
}

// GetByBooking returns the most recent payment for a booking, or
// ErrPaymentNotFound when the booking has never been initialized.
func (r *PaymentRepo) GetByBooking(ctx context.Context, bookingID uint64) (*model.Payment, error) {
	const q = `SELECT id, booking_id, reference, amount, status, created_at
	           FROM payments WHERE booking_id = ? ORDER BY id DESC LIMIT 1`
	var p model.Payment
	err := r.db.QueryRowContext(ctx, q, bookingID).Scan(
		&p.ID, &p.BookingID, &p.Reference, &p.Amount, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}
