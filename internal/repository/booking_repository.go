package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/railway-ticket-booking/internal/model"
)

// BookingRepo provides persistence for bookings and their embedded
// passenger records.  State-changing methods that participate in the
// reservation or reconciliation flows take an explicit *sql.Tx; the
// caller (the inventory ledger or the payment reconciler) owns the
// transaction boundary and must commit or roll back.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning bookings, passengers and seat inventory.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a pending booking and its passenger rows inside
// the provided transaction.  The generated internal ID is populated
// on the passed booking.  The public booking code stays NULL until
// confirmation.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const ins = `INSERT INTO bookings (user_id, train_id, class_type, coach,
	             contact_email, contact_phone, total_price, status)
	             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins,
		b.UserID, b.TrainID, b.ClassType, b.Coach,
		b.Contact.Email, b.Contact.Phone, b.TotalPrice, b.Status,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	if len(b.Passengers) == 0 {
		return nil
	}
	query := `INSERT INTO booking_passengers (booking_id, position, fare_type, name, nin, email, phone, seat_number) VALUES `
	args := make([]interface{}, 0, len(b.Passengers)*8)
	for i := range b.Passengers {
		p := &b.Passengers[i]
		p.BookingID = b.ID
		p.Position = uint32(i)
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, p.BookingID, p.Position, p.FareType, p.Name, p.NIN, p.Email, p.Phone, p.SeatNumber)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// LiveSeatsTx returns every seat number held by a non-cancelled
// booking on the given (train, class, coach) partition.  Callers must
// hold the partition's inventory lock so the result cannot change
// before the transaction commits.
func (r *BookingRepo) LiveSeatsTx(ctx context.Context, tx *sql.Tx, trainID uint64, classType, coach string) ([]uint32, error) {
	const q = `SELECT p.seat_number
	           FROM booking_passengers p
	           JOIN bookings b ON b.id = p.booking_id
	           WHERE b.train_id = ? AND b.class_type = ? AND b.coach = ? AND b.status <> 'cancelled'
	           ORDER BY p.seat_number`
	rows, err := tx.QueryContext(ctx, q, trainID, classType, coach)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]uint32, 0)
	for rows.Next() {
		var s uint32
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// HasLiveBookingTx reports whether the user already holds a
// non-cancelled booking on the partition.  Used to reject duplicate
// bookings before any seats are checked.
func (r *BookingRepo) HasLiveBookingTx(ctx context.Context, tx *sql.Tx, userID, trainID uint64, classType, coach string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM bookings
	           WHERE user_id = ? AND train_id = ? AND class_type = ? AND coach = ? AND status <> 'cancelled')`
	var exists bool
	if err := tx.QueryRowContext(ctx, q, userID, trainID, classType, coach).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

const bookingColumns = `id, COALESCE(booking_code, ''), user_id, train_id, class_type, coach,
	contact_email, contact_phone, total_price, status, created_at`

// scanBooking reads one bookings row.
func scanBooking(sc interface {
	Scan(dest ...interface{}) error
}) (*model.Booking, error) {
	var b model.Booking
	err := sc.Scan(
		&b.ID, &b.Code, &b.UserID, &b.TrainID, &b.ClassType, &b.Coach,
		&b.Contact.Email, &b.Contact.Phone, &b.TotalPrice, &b.Status, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// passengersFor loads the passenger rows of a booking in positional
// order and fills the derived seat list.
func (r *BookingRepo) passengersFor(ctx context.Context, q querier, b *model.Booking) error {
	const query = `SELECT id, booking_id, position, fare_type, name, nin, email, phone, seat_number
	               FROM booking_passengers WHERE booking_id = ? ORDER BY position`
	rows, err := q.QueryContext(ctx, query, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	b.Passengers = b.Passengers[:0]
	b.Seats = b.Seats[:0]
	for rows.Next() {
		var p model.Passenger
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Position, &p.FareType, &p.Name, &p.NIN, &p.Email, &p.Phone, &p.SeatNumber); err != nil {
			return err
		}
		b.Passengers = append(b.Passengers, p)
		b.Seats = append(b.Seats, p.SeatNumber)
	}
	return rows.Err()
}

// GetByID returns a booking with its passengers.  It returns
// ErrBookingNotFound when the ID matches no row.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if err := r.passengersFor(ctx, r.db, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetByIDTx is GetByID within an existing transaction.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if err := r.passengersFor(ctx, tx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetByCode returns a booking by its public booking code.
func (r *BookingRepo) GetByCode(ctx context.Context, code string) (*model.Booking, error) {
	code = strings.TrimSpace(code)
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_code = ?`, code)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if err := r.passengersFor(ctx, r.db, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetByCodeTx loads a booking by public code and locks its row for
// the remainder of the transaction.  Cancellation uses it so a
// concurrent reconciliation of the same booking serializes behind the
// lock.
func (r *BookingRepo) GetByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*model.Booking, error) {
	code = strings.TrimSpace(code)
	row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_code = ? FOR UPDATE`, code)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if err := r.passengersFor(ctx, tx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ListByUser returns the user's bookings, newest first.  When status
// is non-empty only bookings in that state are returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, status string) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ?`
	args := []interface{}{userID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range bookings {
		if err := r.passengersFor(ctx, r.db, &bookings[i]); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

// CodeExistsTx reports whether a candidate public booking code is
// already assigned.  Confirmation redraws the code on collision.
func (r *BookingRepo) CodeExistsTx(ctx context.Context, tx *sql.Tx, code string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bookings WHERE booking_code = ?)`, code).Scan(&exists)
	return exists, err
}

// ConfirmTx transitions a pending booking to confirmed and assigns
// its public code.  The guard on status makes the update a no-op for
// bookings that already left the pending state; callers check the
// affected row count.
func (r *BookingRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, id uint64, code string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'confirmed', booking_code = COALESCE(booking_code, ?) WHERE id = ? AND status = 'pending'`,
		code, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CancelTx transitions a live booking to cancelled.  Terminal states
// are never left: a booking already cancelled reports zero affected
// rows.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled' WHERE id = ? AND status <> 'cancelled'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CancelPendingTx transitions a booking to cancelled only while it is
// still pending.  The abandonment sweeper uses it instead of CancelTx:
// a booking that gets paid between being listed as stale and being
// swept reports zero affected rows and keeps its seats.
func (r *BookingRepo) CancelPendingTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled' WHERE id = ? AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// StalePending returns bookings that have sat in pending longer than
// the cutoff.  The listing takes no locks; each candidate is
// re-checked by CancelPendingTx inside its own transaction.
func (r *BookingRepo) StalePending(ctx context.Context, olderThan time.Time) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE status = 'pending' AND created_at < ?`
	rows, err := r.db.QueryContext(ctx, q, olderThan.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stale := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		stale = append(stale, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range stale {
		if err := r.passengersFor(ctx, r.db, &stale[i]); err != nil {
			return nil, err
		}
	}
	return stale, nil
}
