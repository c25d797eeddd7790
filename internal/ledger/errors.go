// Package ledger implements the seat inventory core: it is the only
// code path allowed to create bookings or mutate seat occupancy, and
// it guarantees that within one (train, class, coach) partition the
// seat sets of all live bookings stay pairwise disjoint.
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrClassNotFound is returned when the requested fare tier is not
// offered on the train.
var ErrClassNotFound = errors.New("class not available on this train")

// ErrDuplicateBooking is returned when the caller already holds a
// live booking on the same train, class and coach.
var ErrDuplicateBooking = errors.New("you already have a booking for this train class and coach")

// ErrNoSeats is returned when a reservation request carries no seat
// numbers.
var ErrNoSeats = errors.New("at least one seat is required")

// ErrPassengerSeatMismatch is returned when the passenger count does
// not match the seat count; passengers are matched to seats
// positionally, so the two lists must pair up exactly.
var ErrPassengerSeatMismatch = errors.New("passenger count must match seat count")

// ErrDuplicateSeatNumbers is returned when the same seat number
// appears twice in one reservation request.
var ErrDuplicateSeatNumbers = errors.New("duplicate seat numbers in request")

// ErrUnknownFareType is returned when a passenger carries a fare type
// other than Adult or Child.
var ErrUnknownFareType = errors.New("unknown passenger fare type")

// ErrAlreadyCancelled is returned when cancelling a booking that is
// already in the cancelled state.
var ErrAlreadyCancelled = errors.New("booking already cancelled")

// InvalidSeatRangeError reports seat numbers outside [1, totalSeats]
// for the requested class.  No booking is created when it occurs.
type InvalidSeatRangeError struct {
	Seats []uint32 // offending seat numbers
	Max   uint32   // highest valid seat number for the class
}

func (e *InvalidSeatRangeError) Error() string {
	return fmt.Sprintf("invalid seat numbers: %s. Valid seats are 1-%d", joinSeats(e.Seats), e.Max)
}

// SeatConflictError reports the exact seat numbers already held by a
// live booking on the partition.
type SeatConflictError struct {
	Seats []uint32 // seats that are already taken
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("the following seat(s) are already taken: %s", joinSeats(e.Seats))
}

// CapacityError reports that the class does not have enough seats
// left for the request.
type CapacityError struct {
	Requested uint32 // seats asked for
	Available uint32 // seats left in the class
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("only %d seats available, %d requested", e.Available, e.Requested)
}

func joinSeats(seats []uint32) string {
	parts := make([]string, len(seats))
	for i, s := range seats {
		parts[i] = fmt.Sprintf("%d", s)
	}
	return strings.Join(parts, ", ")
}
