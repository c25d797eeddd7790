package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"

	"github.com/iliyamo/railway-ticket-booking/internal/ledger"
	"github.com/iliyamo/railway-ticket-booking/internal/model"
	"github.com/iliyamo/railway-ticket-booking/internal/repository"
	"github.com/iliyamo/railway-ticket-booking/internal/ticket"
)

// ErrVerificationFailed is returned when the gateway reports anything
// other than success for a reference.  No local state changes when it
// occurs.
var ErrVerificationFailed = errors.New("payment verification failed")

// ErrBookingNotPending is returned when payment is initialized or
// reconciled for a booking that already left the pending state.
var ErrBookingNotPending = errors.New("booking is not awaiting payment")

// Dispatcher is the slice of the ticket package the reconciler needs;
// tests substitute a counter.
type Dispatcher interface {
	Dispatch(ctx context.Context, b *model.Booking) error
}

// Reconciler maps external payment references onto local payment and
// booking records and advances the booking lifecycle when the gateway
// confirms a charge.  Both reconciliation entry points, the user
// redirect and the server-to-server webhook, funnel into Reconcile,
// which is idempotent per reference.
type Reconciler struct {
	Payments *repository.PaymentRepo
	Bookings *repository.BookingRepo
	Trains   *repository.TrainRepo
	Gateway  Gateway

	Tickets Dispatcher
	Retry   ticket.RetryPolicy

	// CallbackURL is where the gateway redirects the customer after
	// checkout; it carries the reference as a query parameter.
	CallbackURL string

	// OnConfirmed, when non-nil, runs after a booking is confirmed
	// and committed.  The queue publisher hangs off this hook; its
	// errors are the hook's own concern.
	OnConfirmed func(ctx context.Context, b *model.Booking)
}

// NewReference generates the opaque token exchanged with the gateway
// for one payment attempt: 20 random bytes, hex encoded.
func NewReference() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Initialize creates a pending payment for the booking and asks the
// gateway to set up the transaction.  The caller must own the booking
// and the booking must still be pending.  The returned result carries
// the gateway's checkout redirect.
func (r *Reconciler) Initialize(ctx context.Context, bookingID, callerID uint64) (*InitializeResult, error) {
	booking, err := r.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != callerID {
		return nil, repository.ErrForbidden
	}
	if booking.Status != model.BookingPending {
		return nil, ErrBookingNotPending
	}
	reference, err := NewReference()
	if err != nil {
		return nil, err
	}
	pay := &model.Payment{
		BookingID: booking.ID,
		Reference: reference,
		Amount:    booking.TotalPrice,
		Status:    model.PaymentPending,
	}
	if err := r.Payments.Create(ctx, pay); err != nil {
		return nil, err
	}
	return r.Gateway.Initialize(ctx, InitializeRequest{
		Email:       booking.Contact.Email,
		AmountKobo:  int64(booking.TotalPrice) * 100, // naira to kobo
		Reference:   reference,
		CallbackURL: r.CallbackURL,
	})
}

// Outcome reports what Reconcile did for a reference.
type Outcome struct {
	Booking  *model.Booking
	Replayed bool // true when the payment was already successful
}

// Reconcile verifies a reference with the gateway and, on success,
// atomically marks the payment successful and confirms the booking,
// assigning its public code.  Replays, such as duplicate webhooks or
// the redirect racing the webhook, are absorbed: the payment row lock
// serializes them and an already-successful payment is a no-op that
// triggers no second ticket dispatch.  Ticket delivery failure never
// rolls back the confirmation; the payment is the source of truth and
// tickets can be re-sent on demand.
func (r *Reconciler) Reconcile(ctx context.Context, reference string) (*Outcome, error) {
	verification, err := r.Gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !verification.Success() {
		return nil, ErrVerificationFailed
	}

	tx, err := r.Payments.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	pay, err := r.Payments.GetByReferenceTx(ctx, tx, reference)
	if err != nil {
		return nil, err
	}
	if pay.Status == model.PaymentSuccessful {
		booking, err := r.Bookings.GetByIDTx(ctx, tx, pay.BookingID)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return &Outcome{Booking: booking, Replayed: true}, nil
	}

	if err := r.Payments.MarkSuccessfulTx(ctx, tx, pay.ID); err != nil {
		return nil, err
	}
	booking, err := r.Bookings.GetByIDTx(ctx, tx, pay.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == model.BookingCancelled {
		// Real money arrived for a booking that no longer exists as a
		// reservation.  Leave a trail so the charge can be refunded or
		// manually reconciled against the gateway dashboard.
		log.Printf("payment reconcile: reference %s (amount %d) verified successful for cancelled booking %d; charge needs manual review",
			reference, pay.Amount, pay.BookingID)
		return nil, ErrBookingNotPending
	}
	train, err := r.Trains.GetByIDTx(ctx, tx, booking.TrainID)
	if err != nil {
		return nil, err
	}
	// Never confirm a booking that cannot produce tickets.
	if !train.HasSchedule() {
		return nil, ticket.ErrIncompleteSchedule
	}
	booking.Train = train

	if booking.Status == model.BookingPending {
		code := booking.Code
		if code == "" {
			code, err = ledger.AllocateCode(func(candidate string) (bool, error) {
				return r.Bookings.CodeExistsTx(ctx, tx, candidate)
			})
			if err != nil {
				return nil, err
			}
		}
		if _, err := r.Bookings.ConfirmTx(ctx, tx, booking.ID, code); err != nil {
			return nil, err
		}
		booking.Code = code
		booking.Status = model.BookingConfirmed
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	if r.OnConfirmed != nil {
		r.OnConfirmed(ctx, booking)
	}
	r.dispatchWithRetry(ctx, booking)
	return &Outcome{Booking: booking}, nil
}

// dispatchWithRetry delivers tickets under the configured retry
// policy.  Exhaustion is logged, not returned: the confirmed state
// stands and tickets remain re-sendable.
func (r *Reconciler) dispatchWithRetry(ctx context.Context, b *model.Booking) {
	if r.Tickets == nil {
		return
	}
	err := r.Retry.Do(ctx, func() error {
		return r.Tickets.Dispatch(ctx, b)
	})
	if err != nil {
		log.Printf("reconciler: ticket dispatch failed for booking %s after retries: %v", b.Code, err)
	}
}
