package ticket

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"github.com/iliyamo/railway-ticket-booking/internal/model"
)

// RenderPDF produces a downloadable PDF version of the booking's
// tickets: one page per passenger.  The same schedule precondition as
// email dispatch applies.
func RenderPDF(b *model.Booking) ([]byte, error) {
	if b.Train == nil || !b.Train.HasSchedule() {
		return nil, ErrIncompleteSchedule
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("NRC Ticket "+b.Code, false)
	for i := range b.Passengers {
		p := &b.Passengers[i]
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 18)
		pdf.Cell(0, 12, "Nigerian Railway Corporation")
		pdf.Ln(14)
		pdf.SetFont("Helvetica", "", 12)
		pdf.Cell(0, 8, "Passenger Ticket")
		pdf.Ln(12)

		line := func(label, value string) {
			pdf.SetFont("Helvetica", "B", 11)
			pdf.Cell(50, 8, label)
			pdf.SetFont("Helvetica", "", 11)
			pdf.Cell(0, 8, value)
			pdf.Ln(8)
		}
		line("Booking ID", b.Code)
		line("Train", b.Train.TrainNumber)
		line("From", fmt.Sprintf("%s  %s %s", b.Train.Departure.Station, b.Train.Departure.Date, b.Train.Departure.Time))
		line("To", fmt.Sprintf("%s  %s %s", b.Train.Arrival.Station, b.Train.Arrival.Date, b.Train.Arrival.Time))
		line("Coach", b.Coach)
		line("Seat", fmt.Sprintf("%d", p.SeatNumber))
		line("Class", b.ClassType)
		line("Fare type", p.FareType)
		line("Passenger", p.Name)
		line("NIN", p.NIN)
		line("Phone", p.Phone)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
