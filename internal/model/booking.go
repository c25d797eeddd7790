package model

import "time"

// Booking lifecycle states.  A booking starts pending, becomes
// confirmed when its payment is verified, or cancelled by its owner.
// Both confirmed and cancelled are terminal with respect to each
// other; no transition revisits pending.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Passenger fare types.  The fare type decides which unit price of the
// booked class applies to the passenger.
const (
	FareAdult = "Adult"
	FareChild = "Child"
)

// Passenger is one traveller embedded in a booking.  Passengers are
// positional: passenger i occupies seat i of the booking's seat list.
//
// Fields:
//  ID         – primary key identifier.
//  BookingID  – booking this passenger belongs to.
//  Position   – zero-based position within the booking.
//  FareType   – Adult or Child.
//  Name       – full name printed on the ticket.
//  NIN        – 11-digit national identification number.
//  Email      – address the passenger's ticket is delivered to.
//  Phone      – contact phone number.
//  SeatNumber – seat occupied by this passenger.
type Passenger struct {
	ID         uint64 `json:"id"`          // booking_passengers.id
	BookingID  uint64 `json:"booking_id"`  // booking_passengers.booking_id
	Position   uint32 `json:"position"`    // booking_passengers.position
	FareType   string `json:"fare_type"`   // booking_passengers.fare_type
	Name       string `json:"name"`        // booking_passengers.name
	NIN        string `json:"nin"`         // booking_passengers.nin
	Email      string `json:"email"`       // booking_passengers.email
	Phone      string `json:"phone"`       // booking_passengers.phone
	SeatNumber uint32 `json:"seat_number"` // booking_passengers.seat_number
}

// Contact is the booking-level contact that receives the summary email.
type Contact struct {
	Email string `json:"email"` // bookings.contact_email
	Phone string `json:"phone"` // bookings.contact_phone
}

// Booking groups the seats reserved by one user on a single
// (train, class, coach) partition.  Within that partition the seat
// sets of all non-cancelled bookings are pairwise disjoint; the
// inventory ledger is the only code path allowed to create bookings.
//
// Fields:
//  ID          – internal primary key.
//  Code        – public, human-shareable booking identifier ("NRC" +
//                8 digits).  Assigned at confirmation; empty before.
//  UserID      – owning user.
//  TrainID     – train being travelled.
//  ClassType   – fare tier booked.
//  Coach       – coach label (e.g. "C1").
//  Seats       – seat numbers held, positionally matched to Passengers.
//  Passengers  – traveller records.
//  Contact     – summary email/phone contact.
//  TotalPrice  – price snapshot in naira taken at reservation time.
//  Status      – pending, confirmed or cancelled.
//  CreatedAt   – creation timestamp (UTC).
type Booking struct {
	ID         uint64      `json:"id"`          // bookings.id
	Code       string      `json:"booking_id"`  // bookings.booking_code (public)
	UserID     uint64      `json:"user_id"`     // bookings.user_id
	TrainID    uint64      `json:"train_id"`    // bookings.train_id
	ClassType  string      `json:"class_type"`  // bookings.class_type
	Coach      string      `json:"coach"`       // bookings.coach
	Seats      []uint32    `json:"seats"`       // derived from passengers
	Passengers []Passenger `json:"passengers"`  // booking_passengers rows
	Contact    Contact     `json:"contact"`     // bookings.contact_*
	TotalPrice uint32      `json:"total_price"` // bookings.total_price
	Status     string      `json:"status"`      // bookings.status
	CreatedAt  time.Time   `json:"created_at"`  // bookings.created_at

	// Train is populated by queries that resolve the schedule, e.g.
	// before dispatching tickets.  It is nil otherwise.
	Train *Train `json:"train,omitempty"`
}

// Live reports whether the booking still holds its seats.  Cancelled
// bookings release their partition seats; everything else counts.
func (b *Booking) Live() bool { return b.Status != BookingCancelled }
