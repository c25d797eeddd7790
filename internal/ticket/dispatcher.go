// Package ticket renders and delivers ticket artifacts for confirmed
// bookings: one ticket email per passenger plus a booking summary for
// the contact.  Rendering is all-or-nothing: every required field of
// every artifact is checked before the first delivery attempt so an
// incomplete booking never produces partial output.
package ticket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"embed"

	"github.com/iliyamo/railway-ticket-booking/internal/model"
)

// ErrIncompleteSchedule is returned when the booking's train is
// missing departure or arrival data.  A booking in this state must
// not be confirmed or ticketed.
var ErrIncompleteSchedule = errors.New("train is missing departure or arrival information")

// MissingFieldError names the first required template field found
// empty while preparing artifacts.  Nothing is sent when it occurs.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required ticket field: %s", e.Field)
}

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Mailer delivers one rendered HTML email.  The production
// implementation speaks SMTP; tests substitute a recorder.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Dispatcher renders ticket artifacts and hands them to a Mailer.
// It holds no retry logic; the caller orchestrating dispatch after
// payment confirmation applies the retry policy.
type Dispatcher struct {
	Mail Mailer
}

// NewDispatcher constructs a Dispatcher and panics on a nil mailer.
func NewDispatcher(mail Mailer) *Dispatcher {
	if mail == nil {
		panic("nil mailer passed to NewDispatcher")
	}
	return &Dispatcher{Mail: mail}
}

// ticketContext feeds the per-passenger ticket template.
type ticketContext struct {
	DepartureStation string
	DepartureDate    string
	DepartureTime    string
	ArrivalStation   string
	ArrivalDate      string
	ArrivalTime      string
	TrainNumber      string
	Coach            string
	SeatNumber       uint32
	FareType         string
	BookingCode      string
	BookingDate      string
	PassengerName    string
	PassengerNIN     string
	PassengerEmail   string
	PassengerPhone   string
}

// summaryRow is one passenger line in the booking summary.
type summaryRow struct {
	Name     string
	Seat     uint32
	FareType string
}

// summaryContext feeds the booking summary template.
type summaryContext struct {
	BookingCode  string
	Passengers   []summaryRow
	ContactEmail string
	ContactPhone string
	TotalPrice   uint32
}

// outgoing is one fully rendered email waiting to be sent.
type outgoing struct {
	to      string
	subject string
	body    string
}

// Dispatch renders a ticket email for every passenger and a summary
// email for the booking contact, then delivers them in order.  The
// booking's train must be resolved and carry complete schedule data.
// Any missing required field aborts before the first send.
func (d *Dispatcher) Dispatch(ctx context.Context, b *model.Booking) error {
	if b.Train == nil || !b.Train.HasSchedule() {
		return ErrIncompleteSchedule
	}
	mails, err := d.render(b)
	if err != nil {
		return err
	}
	for _, m := range mails {
		if err := d.Mail.Send(ctx, m.to, m.subject, m.body); err != nil {
			return fmt.Errorf("send to %s: %w", m.to, err)
		}
	}
	return nil
}

// render produces every artifact for the booking, validating required
// fields as it goes.  No email leaves this function half-built.
func (d *Dispatcher) render(b *model.Booking) ([]outgoing, error) {
	mails := make([]outgoing, 0, len(b.Passengers)+1)
	for i := range b.Passengers {
		p := &b.Passengers[i]
		tc := ticketContext{
			DepartureStation: b.Train.Departure.Station,
			DepartureDate:    b.Train.Departure.Date,
			DepartureTime:    b.Train.Departure.Time,
			ArrivalStation:   b.Train.Arrival.Station,
			ArrivalDate:      b.Train.Arrival.Date,
			ArrivalTime:      b.Train.Arrival.Time,
			TrainNumber:      b.Train.TrainNumber,
			Coach:            b.Coach,
			SeatNumber:       p.SeatNumber,
			FareType:         p.FareType,
			BookingCode:      b.Code,
			BookingDate:      b.CreatedAt.Format("02 Jan 2006"),
			PassengerName:    p.Name,
			PassengerNIN:     p.NIN,
			PassengerEmail:   p.Email,
			PassengerPhone:   p.Phone,
		}
		if err := requireFields(map[string]string{
			"departure_station": tc.DepartureStation,
			"departure_date":    tc.DepartureDate,
			"departure_time":    tc.DepartureTime,
			"arrival_station":   tc.ArrivalStation,
			"arrival_date":      tc.ArrivalDate,
			"arrival_time":      tc.ArrivalTime,
			"train_number":      tc.TrainNumber,
			"coach":             tc.Coach,
			"booking_code":      tc.BookingCode,
			"passenger_name":    tc.PassengerName,
			"passenger_nin":     tc.PassengerNIN,
			"passenger_email":   tc.PassengerEmail,
			"passenger_phone":   tc.PassengerPhone,
			"fare_type":         tc.FareType,
		}); err != nil {
			return nil, err
		}
		if tc.SeatNumber == 0 {
			return nil, &MissingFieldError{Field: "seat_number"}
		}
		body, err := execute("ticket.html", tc)
		if err != nil {
			return nil, err
		}
		mails = append(mails, outgoing{
			to:      p.Email,
			subject: "Your Nigerian Railway Corporation Ticket",
			body:    body,
		})
	}

	sc := summaryContext{
		BookingCode:  b.Code,
		Passengers:   make([]summaryRow, len(b.Passengers)),
		ContactEmail: b.Contact.Email,
		ContactPhone: b.Contact.Phone,
		TotalPrice:   b.TotalPrice,
	}
	for i := range b.Passengers {
		sc.Passengers[i] = summaryRow{
			Name:     b.Passengers[i].Name,
			Seat:     b.Passengers[i].SeatNumber,
			FareType: b.Passengers[i].FareType,
		}
	}
	if err := requireFields(map[string]string{
		"booking_code":  sc.BookingCode,
		"contact_email": sc.ContactEmail,
		"contact_phone": sc.ContactPhone,
	}); err != nil {
		return nil, err
	}
	body, err := execute("summary.html", sc)
	if err != nil {
		return nil, err
	}
	mails = append(mails, outgoing{
		to:      sc.ContactEmail,
		subject: "Summary of Your Nigerian Railway Corporation Booking",
		body:    body,
	})
	return mails, nil
}

// requireFields returns a MissingFieldError naming the first empty
// value.  Map iteration order is random, so for a deterministic
// diagnostic the caller keeps groups small; any missing field aborts
// regardless.
func requireFields(fields map[string]string) error {
	for name, v := range fields {
		if v == "" {
			return &MissingFieldError{Field: name}
		}
	}
	return nil
}

func execute(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
