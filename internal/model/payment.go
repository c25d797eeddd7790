package model

import "time"

// Payment statuses.  A payment is created pending when a booking's
// checkout is initialized and flips to successful exactly once during
// reconciliation.  Failed is recorded when the gateway reports a
// terminal failure.
const (
	PaymentPending    = "pending"
	PaymentSuccessful = "successful"
	PaymentFailed     = "failed"
)

// Payment links a booking to one payment attempt at the external
// gateway.  Reference is the opaque token exchanged with the gateway
// and is unique across all payments; reconciliation is keyed by it.
//
// Fields:
//  ID        – primary key identifier.
//  BookingID – booking being paid for.
//  Reference – unique opaque gateway reference.
//  Amount    – amount in naira; equals the booking's TotalPrice.
//  Status    – pending, successful or failed.
//  CreatedAt – creation timestamp (UTC).
type Payment struct {
	ID        uint64    `json:"id"`         // payments.id
	BookingID uint64    `json:"booking_id"` // payments.booking_id
	Reference string    `json:"reference"`  // payments.reference
	Amount    uint32    `json:"amount"`     // payments.amount
	Status    string    `json:"status"`     // payments.status
	CreatedAt time.Time `json:"created_at"` // payments.created_at
}
