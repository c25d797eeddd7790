package queue

import (
	"time"

	"github.com/iliyamo/railway-ticket-booking/internal/model"
)

// EventFromBooking flattens a confirmed booking and its train into the
// broker payload. The booking's Train must be populated.
func EventFromBooking(b *model.Booking) BookingConfirmedEvent {
	ev := BookingConfirmedEvent{
		BookingID:   b.ID,
		BookingCode: b.Code,
		UserID:      b.UserID,
		TrainID:     b.TrainID,
		ClassType:   b.ClassType,
		Coach:       b.Coach,
		Seats:       append([]uint32(nil), b.Seats...),
		TotalPrice:  b.TotalPrice,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, p := range b.Passengers {
		ev.Passengers = append(ev.Passengers, p.Name)
	}
	if t := b.Train; t != nil {
		ev.TrainNumber = t.TrainNumber
		ev.Origin = t.Departure.Station
		ev.Destination = t.Arrival.Station
		ev.TravelDate = t.Departure.Date
	}
	return ev
}
