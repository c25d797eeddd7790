package handler

import (
	"crypto/hmac"   // webhook signature verification
	"crypto/sha512" // Paystack signs webhooks with HMAC-SHA512
	"encoding/hex"  // hex comparison of signatures
	"encoding/json" // webhook payload decoding
	"errors"        // sentinel comparisons
	"io"            // bounded body reads
	"net/http"      // HTTP status codes
	"strings"       // reference normalization

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/railway-ticket-booking/internal/payment"    // gateway reconciliation
	"github.com/iliyamo/railway-ticket-booking/internal/repository" // repository layer
	"github.com/iliyamo/railway-ticket-booking/internal/ticket"     // dispatch preconditions
)

// PaymentHandler adapts the two gateway entry points onto the
// reconciler: the customer redirect (callback) and the
// server-to-server webhook.  Both paths converge on the same
// idempotent reconciliation, so it does not matter which one arrives
// first or whether both arrive.
type PaymentHandler struct {
	Reconciler *payment.Reconciler
	Payments   *repository.PaymentRepo

	// WebhookSecret signs webhook bodies; it is the Paystack secret key.
	WebhookSecret string
}

// NewPaymentHandler constructs a PaymentHandler and panics on nil dependencies.
func NewPaymentHandler(r *payment.Reconciler, payments *repository.PaymentRepo, webhookSecret string) *PaymentHandler {
	if r == nil || payments == nil {
		panic("nil dependency passed to NewPaymentHandler")
	}
	return &PaymentHandler{Reconciler: r, Payments: payments, WebhookSecret: webhookSecret}
}

type initializePaymentReq struct {
	BookingID uint64 `json:"booking_id"`
}

// Initialize handles POST /v1/payments/initialize.  It creates a
// pending payment for the caller's booking and returns the gateway
// checkout URL.
func (h *PaymentHandler) Initialize(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req initializePaymentReq
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id required"})
	}
	res, err := h.Reconciler.Initialize(c.Request().Context(), req.BookingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, payment.ErrBookingNotPending):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not awaiting payment"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment initialization failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"authorization_url": res.AuthorizationURL,
		"access_code":       res.AccessCode,
		"reference":         res.Reference,
	})
}

// Callback handles GET /v1/payments/callback?reference=.  The gateway
// redirects the customer here after checkout; the reference is
// verified server side before anything changes.
func (h *PaymentHandler) Callback(c echo.Context) error {
	reference := strings.TrimSpace(c.QueryParam("reference"))
	if reference == "" {
		reference = strings.TrimSpace(c.QueryParam("trxref"))
	}
	if reference == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reference is required"})
	}
	return h.reconcile(c, reference)
}

// Webhook handles POST /v1/payments/webhook.  The body must carry a
// valid x-paystack-signature header; only charge.success events are
// acted on, everything else is acknowledged and dropped.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	if !h.validSignature(body, c.Request().Header.Get("x-paystack-signature")) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
	}
	var event struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	if event.Event != "charge.success" || event.Data.Reference == "" {
		// Acknowledge so the gateway stops retrying events we ignore.
		return c.NoContent(http.StatusOK)
	}
	return h.reconcile(c, event.Data.Reference)
}

// reconcile is the shared tail of both entry points.
func (h *PaymentHandler) reconcile(c echo.Context, reference string) error {
	outcome, err := h.Reconciler.Reconcile(c.Request().Context(), reference)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrVerificationFailed):
			_ = h.Payments.MarkFailed(c.Request().Context(), reference)
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment was not successful"})
		case errors.Is(err, repository.ErrPaymentNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown payment reference"})
		case errors.Is(err, payment.ErrBookingNotPending):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is no longer payable"})
		case errors.Is(err, ticket.ErrIncompleteSchedule):
			return c.JSON(http.StatusConflict, echo.Map{"error": "train schedule is incomplete"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconciliation failed"})
	}
	status := http.StatusOK
	return c.JSON(status, echo.Map{
		"status":     "success",
		"replayed":   outcome.Replayed,
		"booking_id": outcome.Booking.Code,
		"item":       outcome.Booking,
	})
}

func (h *PaymentHandler) validSignature(body []byte, signature string) bool {
	if h.WebhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(h.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
