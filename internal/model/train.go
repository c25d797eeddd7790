package model

// RouteStop describes one endpoint of a train journey.  Both the
// departure and arrival sides of a train are represented with this
// structure.  Dates and times are stored as display strings because
// the schedule data is read-mostly and rendered verbatim on tickets.
//
// Fields:
//  Station – name of the station.
//  Date    – scheduled date (e.g. "2025-04-12").
//  Time    – scheduled time (e.g. "08:30").
type RouteStop struct {
	Station string `json:"station"` // trains.<side>_station
	Date    string `json:"date"`    // trains.<side>_date
	Time    string `json:"time"`    // trains.<side>_time
}

// TrainClass is a fare tier offered on a train.  Capacity lives here;
// per-coach occupancy lives in the seat_inventory table and is owned
// exclusively by the inventory ledger.  AvailableSeats is derived on
// read (totalSeats minus the sum of reserved seats across coaches) and
// never persisted.
//
// Fields:
//  ID             – primary key identifier.
//  TrainID        – train this class belongs to.
//  Type           – class type name (e.g. "First Class", "Standard").
//  PriceAdult     – adult fare in naira.
//  PriceChild     – child fare in naira.
//  TotalSeats     – seat capacity of the class.
//  AvailableSeats – derived, computed on read.
type TrainClass struct {
	ID             uint64 `json:"id"`              // train_classes.id
	TrainID        uint64 `json:"train_id"`        // train_classes.train_id
	Type           string `json:"type"`            // train_classes.class_type
	PriceAdult     uint32 `json:"price_adult"`     // train_classes.price_adult
	PriceChild     uint32 `json:"price_child"`     // train_classes.price_child
	TotalSeats     uint32 `json:"total_seats"`     // train_classes.total_seats
	AvailableSeats uint32 `json:"available_seats"` // derived, not a column
}

// Train is a scheduled service in the schedule directory.  The core
// treats trains as read-only except for the seat occupancy tracked in
// seat_inventory.
//
// Fields:
//  ID          – primary key identifier.
//  TrainNumber – unique service number (e.g. "NRC-101").
//  Route       – human readable route description.
//  TimeOfDay   – rough slot used by search UIs (Morning/Afternoon/...).
//  Duration    – display duration of the journey.
//  Departure   – departure endpoint.
//  Arrival     – arrival endpoint.
//  Classes     – fare tiers offered on this train.
type Train struct {
	ID          uint64       `json:"id"`           // trains.id
	TrainNumber string       `json:"train_number"` // trains.train_number
	Route       string       `json:"route"`        // trains.route
	TimeOfDay   string       `json:"time_of_day"`  // trains.time_of_day
	Duration    string       `json:"duration"`     // trains.duration
	Departure   RouteStop    `json:"departure"`    // trains.departure_*
	Arrival     RouteStop    `json:"arrival"`      // trains.arrival_*
	Classes     []TrainClass `json:"classes"`      // train_classes rows
}

// HasSchedule reports whether both route endpoints carry the data a
// ticket needs.  Bookings must not be confirmed for trains that fail
// this check.
func (t *Train) HasSchedule() bool {
	return t.Departure.Station != "" && t.Departure.Date != "" && t.Departure.Time != "" &&
		t.Arrival.Station != "" && t.Arrival.Date != "" && t.Arrival.Time != ""
}

// ClassByType returns the fare tier with the given type name, or nil
// when the train does not offer it.
func (t *Train) ClassByType(classType string) *TrainClass {
	for i := range t.Classes {
		if t.Classes[i].Type == classType {
			return &t.Classes[i]
		}
	}
	return nil
}
