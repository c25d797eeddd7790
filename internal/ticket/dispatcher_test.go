package ticket

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/railway-ticket-booking/internal/model"
)

type recordingMailer struct {
	sent []string // recipients in send order
	fail error    // returned on every Send when non-nil
}

func (m *recordingMailer) Send(_ context.Context, to, _, _ string) error {
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, to)
	return nil
}

func confirmedBooking() *model.Booking {
	return &model.Booking{
		ID:        42,
		Code:      "NRC12345678",
		UserID:    7,
		TrainID:   1,
		ClassType: "Standard",
		Coach:     "C1",
		Seats:     []uint32{3, 4},
		Passengers: []model.Passenger{
			{Position: 0, FareType: model.FareAdult, Name: "Ada Obi", NIN: "12345678901", Email: "ada@example.com", Phone: "0801", SeatNumber: 3},
			{Position: 1, FareType: model.FareChild, Name: "Ngozi Obi", NIN: "10987654321", Email: "ngozi@example.com", Phone: "0802", SeatNumber: 4},
		},
		Contact:    model.Contact{Email: "buyer@example.com", Phone: "0800"},
		TotalPrice: 8400,
		Status:     model.BookingConfirmed,
		CreatedAt:  time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC),
		Train: &model.Train{
			ID:          1,
			TrainNumber: "NRC-101",
			Route:       "Lagos - Ibadan",
			Departure:   model.RouteStop{Station: "Lagos", Date: "2025-04-12", Time: "08:30"},
			Arrival:     model.RouteStop{Station: "Ibadan", Date: "2025-04-12", Time: "11:00"},
		},
	}
}

func TestDispatchSendsTicketPerPassengerPlusSummary(t *testing.T) {
	m := &recordingMailer{}
	d := NewDispatcher(m)

	if err := d.Dispatch(context.Background(), confirmedBooking()); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	want := []string{"ada@example.com", "ngozi@example.com", "buyer@example.com"}
	if len(m.sent) != len(want) {
		t.Fatalf("expected %d emails, got %d (%v)", len(want), len(m.sent), m.sent)
	}
	for i := range want {
		if m.sent[i] != want[i] {
			t.Fatalf("email %d went to %s, want %s", i, m.sent[i], want[i])
		}
	}
}

func TestDispatchIncompleteScheduleSendsNothing(t *testing.T) {
	m := &recordingMailer{}
	d := NewDispatcher(m)

	b := confirmedBooking()
	b.Train.Arrival.Station = ""
	if err := d.Dispatch(context.Background(), b); !errors.Is(err, ErrIncompleteSchedule) {
		t.Fatalf("got %v want ErrIncompleteSchedule", err)
	}
	if len(m.sent) != 0 {
		t.Fatalf("no email may leave on incomplete schedule, sent %v", m.sent)
	}

	b = confirmedBooking()
	b.Train = nil
	if err := d.Dispatch(context.Background(), b); !errors.Is(err, ErrIncompleteSchedule) {
		t.Fatalf("nil train: got %v want ErrIncompleteSchedule", err)
	}
	if len(m.sent) != 0 {
		t.Fatalf("no email may leave on nil train, sent %v", m.sent)
	}
}

func TestDispatchMissingPassengerFieldAbortsBeforeFirstSend(t *testing.T) {
	m := &recordingMailer{}
	d := NewDispatcher(m)

	// The hole is in the SECOND passenger; the first passenger's
	// already-rendered ticket must not be sent either.
	b := confirmedBooking()
	b.Passengers[1].NIN = ""
	err := d.Dispatch(context.Background(), b)
	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v want MissingFieldError", err)
	}
	if missing.Field != "passenger_nin" {
		t.Fatalf("wrong field named: %s", missing.Field)
	}
	if len(m.sent) != 0 {
		t.Fatalf("rendering is all-or-nothing, but sent %v", m.sent)
	}
}

func TestDispatchZeroSeatNumberRejected(t *testing.T) {
	m := &recordingMailer{}
	d := NewDispatcher(m)

	b := confirmedBooking()
	b.Passengers[0].SeatNumber = 0
	err := d.Dispatch(context.Background(), b)
	var missing *MissingFieldError
	if !errors.As(err, &missing) || missing.Field != "seat_number" {
		t.Fatalf("got %v want MissingFieldError{seat_number}", err)
	}
	if len(m.sent) != 0 {
		t.Fatalf("sent %v despite invalid seat", m.sent)
	}
}

func TestDispatchSendFailureNamesRecipient(t *testing.T) {
	m := &recordingMailer{fail: errors.New("smtp down")}
	d := NewDispatcher(m)

	err := d.Dispatch(context.Background(), confirmedBooking())
	if err == nil || !strings.Contains(err.Error(), "ada@example.com") {
		t.Fatalf("error should name the failed recipient, got %v", err)
	}
}

func TestRenderedTicketCarriesBookingDetails(t *testing.T) {
	d := NewDispatcher(&recordingMailer{})
	b := confirmedBooking()
	mails, err := d.render(b)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	ticket := mails[0].body
	for _, want := range []string{"NRC12345678", "Lagos", "Ibadan", "NRC-101", "Ada Obi", "08:30"} {
		if !strings.Contains(ticket, want) {
			t.Fatalf("ticket body missing %q", want)
		}
	}
	summary := mails[len(mails)-1].body
	for _, want := range []string{"NRC12345678", "Ada Obi", "Ngozi Obi"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary body missing %q", want)
		}
	}
}
