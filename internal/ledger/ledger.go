package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/railway-ticket-booking/internal/model"
	"github.com/iliyamo/railway-ticket-booking/internal/repository"
)

// Ledger validates and commits seat reservations.  All mutations of
// seat occupancy flow through it: Reserve takes seats under a
// partition lock, Cancel and ExpireStale release them.  The booking
// row and the occupancy counter always commit in the same
// transaction, so a crash can never leave seats reserved without a
// booking or a booking without its capacity decrement.
type Ledger struct {
	Trains    *repository.TrainRepo
	Bookings  *repository.BookingRepo
	Inventory *repository.InventoryRepo

	// ConvenienceFee is added once per booking on top of the
	// per-passenger fares, in naira.
	ConvenienceFee uint32
}

// New constructs a Ledger and panics if any repository is nil.
func New(trains *repository.TrainRepo, bookings *repository.BookingRepo, inventory *repository.InventoryRepo, convenienceFee uint32) *Ledger {
	if trains == nil || bookings == nil || inventory == nil {
		panic("nil repository passed to ledger.New")
	}
	return &Ledger{Trains: trains, Bookings: bookings, Inventory: inventory, ConvenienceFee: convenienceFee}
}

// ReserveRequest carries one validated reservation attempt.  Seats
// and Passengers are positional: passenger i occupies seat i.
type ReserveRequest struct {
	UserID     uint64
	TrainID    uint64
	ClassType  string
	Coach      string
	Seats      []uint32
	Passengers []model.Passenger
	Contact    model.Contact
}

// Reserve validates the request against the train's inventory and, on
// success, atomically creates a pending booking and increments the
// partition's occupancy.  Validation order is fixed and the first
// violation wins: seat range, duplicate booking, seat conflict,
// capacity.  The total price is snapshotted at reservation time and
// never recomputed, so later fare changes cannot alter the charge.
func (l *Ledger) Reserve(ctx context.Context, req ReserveRequest) (*model.Booking, error) {
	if len(req.Seats) == 0 {
		return nil, ErrNoSeats
	}
	if len(req.Passengers) != len(req.Seats) {
		return nil, ErrPassengerSeatMismatch
	}
	seen := make(map[uint32]struct{}, len(req.Seats))
	for _, s := range req.Seats {
		if _, dup := seen[s]; dup {
			return nil, ErrDuplicateSeatNumbers
		}
		seen[s] = struct{}{}
	}

	tx, err := l.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	train, err := l.Trains.GetByIDTx(ctx, tx, req.TrainID)
	if err != nil {
		return nil, err
	}
	class := train.ClassByType(req.ClassType)
	if class == nil {
		return nil, ErrClassNotFound
	}

	// 1. Every requested seat must lie in [1, totalSeats].
	var outOfRange []uint32
	for _, s := range req.Seats {
		if s < 1 || s > class.TotalSeats {
			outOfRange = append(outOfRange, s)
		}
	}
	if len(outOfRange) > 0 {
		return nil, &InvalidSeatRangeError{Seats: outOfRange, Max: class.TotalSeats}
	}

	// Serialize against every other reservation on this class before
	// reading occupancy or live seats.
	if err := l.Inventory.EnsurePartitionTx(ctx, tx, req.TrainID, req.ClassType, req.Coach); err != nil {
		return nil, err
	}
	reserved, err := l.Inventory.LockClassTx(ctx, tx, req.TrainID, req.ClassType)
	if err != nil {
		return nil, err
	}

	// 2. One live booking per user per partition.
	dup, err := l.Bookings.HasLiveBookingTx(ctx, tx, req.UserID, req.TrainID, req.ClassType, req.Coach)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, ErrDuplicateBooking
	}

	// 3. No requested seat may belong to a live booking on the partition.
	taken, err := l.Bookings.LiveSeatsTx(ctx, tx, req.TrainID, req.ClassType, req.Coach)
	if err != nil {
		return nil, err
	}
	takenSet := make(map[uint32]struct{}, len(taken))
	for _, s := range taken {
		takenSet[s] = struct{}{}
	}
	var conflicts []uint32
	for _, s := range req.Seats {
		if _, ok := takenSet[s]; ok {
			conflicts = append(conflicts, s)
		}
	}
	if len(conflicts) > 0 {
		return nil, &SeatConflictError{Seats: conflicts}
	}

	// 4. Enough seats must remain in the class as a whole.
	available := uint32(0)
	if class.TotalSeats > reserved {
		available = class.TotalSeats - reserved
	}
	if uint32(len(req.Seats)) > available {
		return nil, &CapacityError{Requested: uint32(len(req.Seats)), Available: available}
	}

	total, err := l.price(class, req.Passengers)
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		UserID:     req.UserID,
		TrainID:    req.TrainID,
		ClassType:  req.ClassType,
		Coach:      req.Coach,
		Seats:      req.Seats,
		Passengers: make([]model.Passenger, len(req.Passengers)),
		Contact:    req.Contact,
		TotalPrice: total,
		Status:     model.BookingPending,
		CreatedAt:  time.Now().UTC(),
	}
	copy(booking.Passengers, req.Passengers)
	for i := range booking.Passengers {
		booking.Passengers[i].SeatNumber = req.Seats[i]
	}

	if err := l.Bookings.CreateTx(ctx, tx, booking); err != nil {
		return nil, err
	}
	if err := l.Inventory.IncrementTx(ctx, tx, req.TrainID, req.ClassType, req.Coach, uint32(len(req.Seats))); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return booking, nil
}

// price computes the fare snapshot: the unit price of each passenger
// by fare type plus one convenience fee for the booking.
func (l *Ledger) price(class *model.TrainClass, passengers []model.Passenger) (uint32, error) {
	total := uint32(0)
	for _, p := range passengers {
		switch p.FareType {
		case model.FareAdult:
			total += class.PriceAdult
		case model.FareChild:
			total += class.PriceChild
		default:
			return 0, ErrUnknownFareType
		}
	}
	return total + l.ConvenienceFee, nil
}

// Cancel transitions a booking to cancelled and releases its seats
// back to the partition.  Only the owning user may cancel; a booking
// that is already cancelled stays untouched.
func (l *Ledger) Cancel(ctx context.Context, bookingCode string, callerID uint64) (*model.Booking, error) {
	tx, err := l.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	booking, err := l.Bookings.GetByCodeTx(ctx, tx, bookingCode)
	if err != nil {
		return nil, err
	}
	if booking.UserID != callerID {
		return nil, repository.ErrForbidden
	}
	if booking.Status == model.BookingCancelled {
		return nil, ErrAlreadyCancelled
	}

	changed, err := l.Bookings.CancelTx(ctx, tx, booking.ID)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := l.Inventory.DecrementTx(ctx, tx, booking.TrainID, booking.ClassType, booking.Coach, uint32(len(booking.Seats))); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	booking.Status = model.BookingCancelled
	return booking, nil
}

// ExpireStale cancels pending bookings created before the cutoff and
// releases their seats.  Unpaid reservations would otherwise hold
// inventory forever.  Each booking is expired in its own transaction,
// so one failure never blocks the rest of the sweep; the count of
// expired bookings is returned alongside the joined per-booking
// errors.
func (l *Ledger) ExpireStale(ctx context.Context, olderThan time.Time) (int, error) {
	stale, err := l.Bookings.StalePending(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	expired := 0
	var errs []error
	for i := range stale {
		b := &stale[i]
		released, err := l.expire(ctx, b)
		if err != nil {
			errs = append(errs, fmt.Errorf("booking %d: %w", b.ID, err))
			continue
		}
		if released {
			expired++
		}
	}
	return expired, errors.Join(errs...)
}

// expire cancels one stale booking and releases its seats.  The
// pending-only update guard absorbs the race with payment
// confirmation: a booking paid after listing reports no change and
// keeps its seats.
func (l *Ledger) expire(ctx context.Context, b *model.Booking) (bool, error) {
	tx, err := l.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	changed, err := l.Bookings.CancelPendingTx(ctx, tx, b.ID)
	if err != nil {
		return false, err
	}
	if !changed {
		committed = true
		return false, tx.Commit()
	}
	if err := l.Inventory.DecrementTx(ctx, tx, b.TrainID, b.ClassType, b.Coach, uint32(len(b.Seats))); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}
