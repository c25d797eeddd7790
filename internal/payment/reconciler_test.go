package payment

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/railway-ticket-booking/internal/model"
	"github.com/iliyamo/railway-ticket-booking/internal/repository"
	"github.com/iliyamo/railway-ticket-booking/internal/ticket"
)

type fakeGateway struct {
	verify      VerifyResult
	verifyErr   error
	verifyCalls int
}

func (g *fakeGateway) Initialize(context.Context, InitializeRequest) (*InitializeResult, error) {
	return &InitializeResult{AuthorizationURL: "https://checkout.example/x", Reference: "ref"}, nil
}

func (g *fakeGateway) Verify(_ context.Context, reference string) (*VerifyResult, error) {
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	v := g.verify
	v.Reference = reference
	return &v, nil
}

type countingDispatcher struct {
	calls int
	fail  error
}

func (d *countingDispatcher) Dispatch(context.Context, *model.Booking) error {
	d.calls++
	return d.fail
}

func newTestReconciler(t *testing.T, gw Gateway, disp Dispatcher) (*Reconciler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	r := &Reconciler{
		Payments: repository.NewPaymentRepo(db),
		Bookings: repository.NewBookingRepo(db),
		Trains:   repository.NewTrainRepo(db),
		Gateway:  gw,
		Tickets:  disp,
		Retry:    ticket.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, Sleep: func(time.Duration) {}},
	}
	return r, mock, func() { db.Close() }
}

func paymentRows(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "booking_id", "reference", "amount", "status", "created_at"}).
		AddRow(9, 42, "ref-abc", 8400, status, time.Now().UTC())
}

func bookingRows(status, code string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "booking_code", "user_id", "train_id", "class_type", "coach",
		"contact_email", "contact_phone", "total_price", "status", "created_at",
	}).AddRow(42, code, 7, 1, "Standard", "C1", "buyer@example.com", "0800", 8400, status, time.Now().UTC())
}

func passengerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "booking_id", "position", "fare_type", "name", "nin", "email", "phone", "seat_number"}).
		AddRow(1, 42, 0, model.FareAdult, "Ada Obi", "12345678901", "ada@example.com", "0801", 3)
}

func trainRows(arrivalTime string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "train_number", "route", "time_of_day", "duration",
		"departure_station", "departure_date", "departure_time",
		"arrival_station", "arrival_date", "arrival_time",
	}).AddRow(1, "NRC-101", "Lagos - Ibadan", "Morning", "2h 30m",
		"Lagos", "2025-04-12", "08:30", "Ibadan", "2025-04-12", arrivalTime)
}

func classRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "train_id", "class_type", "price_adult", "price_child", "total_seats", "reserved",
	}).AddRow(10, 1, "Standard", 5000, 3000, 10, 1)
}

func TestReconcileVerificationFailureTouchesNothing(t *testing.T) {
	gw := &fakeGateway{verify: VerifyResult{Status: "failed"}}
	disp := &countingDispatcher{}
	r, mock, closeDB := newTestReconciler(t, gw, disp)
	defer closeDB()

	_, err := r.Reconcile(context.Background(), "ref-abc")
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("got %v want ErrVerificationFailed", err)
	}
	if disp.calls != 0 {
		t.Fatalf("dispatch must not run on failed verification")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("database touched on failed verification: %v", err)
	}
}

func TestReconcileUnknownReference(t *testing.T) {
	gw := &fakeGateway{verify: VerifyResult{Status: "success", AmountKobo: 840000}}
	r, mock, closeDB := newTestReconciler(t, gw, &countingDispatcher{})
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE reference").WithArgs("ref-abc").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	if _, err := r.Reconcile(context.Background(), "ref-abc"); !errors.Is(err, repository.ErrPaymentNotFound) {
		t.Fatalf("got %v want ErrPaymentNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReconcileConfirmsBookingAndDispatchesOnce(t *testing.T) {
	gw := &fakeGateway{verify: VerifyResult{Status: "success", AmountKobo: 840000}}
	disp := &countingDispatcher{}
	r, mock, closeDB := newTestReconciler(t, gw, disp)
	defer closeDB()

	hooks := 0
	r.OnConfirmed = func(context.Context, *model.Booking) { hooks++ }

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE reference").WithArgs("ref-abc").
		WillReturnRows(paymentRows(model.PaymentPending))
	mock.ExpectExec("UPDATE payments SET status = 'successful'").WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(bookingRows(model.BookingPending, ""))
	mock.ExpectQuery("FROM booking_passengers").WithArgs(uint64(42)).
		WillReturnRows(passengerRows())
	mock.ExpectQuery("SELECT id, train_number").WithArgs(uint64(1)).
		WillReturnRows(trainRows("11:00"))
	mock.ExpectQuery("FROM train_classes").WithArgs(uint64(1)).
		WillReturnRows(classRows())
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("UPDATE bookings SET status = 'confirmed'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := r.Reconcile(context.Background(), "ref-abc")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if outcome.Replayed {
		t.Fatalf("first reconciliation must not report a replay")
	}
	if outcome.Booking.Status != model.BookingConfirmed {
		t.Fatalf("booking not confirmed: %q", outcome.Booking.Status)
	}
	if !strings.HasPrefix(outcome.Booking.Code, "NRC") || len(outcome.Booking.Code) != 11 {
		t.Fatalf("malformed booking code %q", outcome.Booking.Code)
	}
	if disp.calls != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", disp.calls)
	}
	if hooks != 1 {
		t.Fatalf("expected exactly one publish hook call, got %d", hooks)
	}
	if gw.verifyCalls != 1 {
		t.Fatalf("expected one gateway verification, got %d", gw.verifyCalls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReconcileReplayIsNoOpWithoutSecondDispatch(t *testing.T) {
	gw := &fakeGateway{verify: VerifyResult{Status: "success", AmountKobo: 840000}}
	disp := &countingDispatcher{}
	r, mock, closeDB := newTestReconciler(t, gw, disp)
	defer closeDB()

	hooks := 0
	r.OnConfirmed = func(context.Context, *model.Booking) { hooks++ }

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE reference").WithArgs("ref-abc").
		WillReturnRows(paymentRows(model.PaymentSuccessful))
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(bookingRows(model.BookingConfirmed, "NRC12345678"))
	mock.ExpectQuery("FROM booking_passengers").WithArgs(uint64(42)).
		WillReturnRows(passengerRows())
	mock.ExpectCommit()

	outcome, err := r.Reconcile(context.Background(), "ref-abc")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !outcome.Replayed {
		t.Fatalf("replay not reported")
	}
	if outcome.Booking.Code != "NRC12345678" {
		t.Fatalf("replay must return the assigned code, got %q", outcome.Booking.Code)
	}
	if disp.calls != 0 {
		t.Fatalf("replay must not dispatch tickets again, dispatched %d times", disp.calls)
	}
	if hooks != 0 {
		t.Fatalf("replay must not publish again, published %d times", hooks)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReconcileIncompleteScheduleRollsBack(t *testing.T) {
	gw := &fakeGateway{verify: VerifyResult{Status: "success", AmountKobo: 840000}}
	disp := &countingDispatcher{}
	r, mock, closeDB := newTestReconciler(t, gw, disp)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE reference").WithArgs("ref-abc").
		WillReturnRows(paymentRows(model.PaymentPending))
	mock.ExpectExec("UPDATE payments SET status = 'successful'").WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(bookingRows(model.BookingPending, ""))
	mock.ExpectQuery("FROM booking_passengers").WithArgs(uint64(42)).
		WillReturnRows(passengerRows())
	mock.ExpectQuery("SELECT id, train_number").WithArgs(uint64(1)).
		WillReturnRows(trainRows("")) // arrival time missing
	mock.ExpectQuery("FROM train_classes").WithArgs(uint64(1)).
		WillReturnRows(classRows())
	mock.ExpectRollback()

	if _, err := r.Reconcile(context.Background(), "ref-abc"); !errors.Is(err, ticket.ErrIncompleteSchedule) {
		t.Fatalf("got %v want ErrIncompleteSchedule", err)
	}
	if disp.calls != 0 {
		t.Fatalf("dispatch must not run when confirmation rolls back")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReconcileDispatchFailureDoesNotUnwindConfirmation(t *testing.T) {
	gw := &fakeGateway{verify: VerifyResult{Status: "success", AmountKobo: 840000}}
	disp := &countingDispatcher{fail: errors.New("smtp down")}
	r, mock, closeDB := newTestReconciler(t, gw, disp)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE reference").WithArgs("ref-abc").
		WillReturnRows(paymentRows(model.PaymentPending))
	mock.ExpectExec("UPDATE payments SET status = 'successful'").WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(bookingRows(model.BookingPending, ""))
	mock.ExpectQuery("FROM booking_passengers").WithArgs(uint64(42)).
		WillReturnRows(passengerRows())
	mock.ExpectQuery("SELECT id, train_number").WithArgs(uint64(1)).
		WillReturnRows(trainRows("11:00"))
	mock.ExpectQuery("FROM train_classes").WithArgs(uint64(1)).
		WillReturnRows(classRows())
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("UPDATE bookings SET status = 'confirmed'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := r.Reconcile(context.Background(), "ref-abc")
	if err != nil {
		t.Fatalf("delivery failure must not fail reconciliation: %v", err)
	}
	if outcome.Booking.Status != model.BookingConfirmed {
		t.Fatalf("booking must stay confirmed, got %q", outcome.Booking.Status)
	}
	if disp.calls != 2 {
		t.Fatalf("expected the retry policy's 2 attempts, got %d", disp.calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReconcileCancelledBookingLeavesAuditTrail(t *testing.T) {
	gw := &fakeGateway{verify: VerifyResult{Status: "success", AmountKobo: 840000}}
	disp := &countingDispatcher{}
	r, mock, closeDB := newTestReconciler(t, gw, disp)
	defer closeDB()

	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE reference").WithArgs("ref-abc").
		WillReturnRows(paymentRows(model.PaymentPending))
	mock.ExpectExec("UPDATE payments SET status = 'successful'").WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE id").WithArgs(uint64(42)).
		WillReturnRows(bookingRows(model.BookingCancelled, ""))
	mock.ExpectQuery("FROM booking_passengers").WithArgs(uint64(42)).
		WillReturnRows(passengerRows())
	mock.ExpectRollback()

	_, err := r.Reconcile(context.Background(), "ref-abc")
	if !errors.Is(err, ErrBookingNotPending) {
		t.Fatalf("expected ErrBookingNotPending, got %v", err)
	}
	if disp.calls != 0 {
		t.Fatalf("cancelled booking must not dispatch tickets, got %d calls", disp.calls)
	}
	// A verified charge on a cancelled booking is real money; the log
	// must name the reference and amount for manual reconciliation.
	out := logs.String()
	if !strings.Contains(out, "ref-abc") || !strings.Contains(out, "8400") {
		t.Fatalf("stranded charge not logged with reference and amount: %q", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNewReferenceIsHexAndUnpredictableLength(t *testing.T) {
	ref, err := NewReference()
	if err != nil {
		t.Fatalf("reference generation failed: %v", err)
	}
	if len(ref) != 40 {
		t.Fatalf("expected 40 hex chars, got %d (%q)", len(ref), ref)
	}
	for _, r := range ref {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("non-hex character %q in reference", r)
		}
	}
}
