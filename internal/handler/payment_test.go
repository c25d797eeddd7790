package handler

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-ticket-booking/internal/payment"
	"github.com/iliyamo/railway-ticket-booking/internal/repository"
)

const webhookSecret = "sk_test_x"

func newPaymentHandler(t *testing.T) (*PaymentHandler, func()) {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	h := NewPaymentHandler(&payment.Reconciler{
		Payments: repository.NewPaymentRepo(db),
		Bookings: repository.NewBookingRepo(db),
		Trains:   repository.NewTrainRepo(db),
	}, repository.NewPaymentRepo(db), webhookSecret)
	return h, func() { db.Close() }
}

func sign(body string) string {
	mac := hmac.New(sha512.New, []byte(webhookSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	h, closeDB := newPaymentHandler(t)
	defer closeDB()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook",
		strings.NewReader(`{"event":"charge.success","data":{"reference":"ref"}}`))
	rec := httptest.NewRecorder()

	if err := h.Webhook(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhookRejectsForgedSignature(t *testing.T) {
	h, closeDB := newPaymentHandler(t)
	defer closeDB()

	e := echo.New()
	body := `{"event":"charge.success","data":{"reference":"ref"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set("x-paystack-signature", sign(body+"tampered"))
	rec := httptest.NewRecorder()

	if err := h.Webhook(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhookAcknowledgesIgnoredEvents(t *testing.T) {
	h, closeDB := newPaymentHandler(t)
	defer closeDB()

	e := echo.New()
	body := `{"event":"charge.failed","data":{"reference":"ref"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set("x-paystack-signature", sign(body))
	rec := httptest.NewRecorder()

	if err := h.Webhook(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	// Ignored events are acknowledged so the gateway stops retrying.
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCallbackRequiresReference(t *testing.T) {
	h, closeDB := newPaymentHandler(t)
	defer closeDB()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/payments/callback", nil)
	rec := httptest.NewRecorder()

	if err := h.Callback(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
