// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a booking is confirmed after a
// successful payment. It contains enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type BookingConfirmedEvent struct {
	BookingID   uint64   `json:"booking_id"`
	BookingCode string   `json:"booking_code"`
	UserID      uint64   `json:"user_id"`
	TrainID     uint64   `json:"train_id"`
	TrainNumber string   `json:"train_number"`
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	TravelDate  string   `json:"travel_date"`
	ClassType   string   `json:"class_type"`
	Coach       string   `json:"coach"`
	Seats       []uint32 `json:"seats"`
	Passengers  []string `json:"passengers"`
	TotalPrice  uint32   `json:"total_price"`
	ConfirmedAt string   `json:"confirmed_at"`
}
