package handler

import (
	"errors"   // for errors.As/Is on ledger errors
	"net/http" // HTTP status codes
	"strconv"  // parsing path parameters
	"strings"  // status query normalization

	"github.com/go-playground/validator/v10" // request payload validation
	"github.com/labstack/echo/v4"            // Echo web framework

	"github.com/iliyamo/railway-ticket-booking/internal/ledger"     // seat inventory ledger
	"github.com/iliyamo/railway-ticket-booking/internal/model"      // domain models
	"github.com/iliyamo/railway-ticket-booking/internal/repository" // repository layer
)

// BookingHandler exposes the booking lifecycle to customers.  All
// endpoints require JWT authentication; seat allocation itself is
// delegated to the ledger so every reservation goes through the same
// partition lock.
type BookingHandler struct {
	Ledger   *ledger.Ledger
	Bookings *repository.BookingRepo
	Validate *validator.Validate
}

// NewBookingHandler constructs a BookingHandler and panics on nil dependencies.
func NewBookingHandler(l *ledger.Ledger, bookings *repository.BookingRepo) *BookingHandler {
	if l == nil || bookings == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Ledger: l, Bookings: bookings, Validate: validator.New()}
}

// ----- DTOs -----

// Every passenger field is required: ticket rendering refuses to send
// partial artifacts, so a booking missing a passenger email or phone
// could be paid for but never ticketed.
type passengerReq struct {
	FareType string `json:"fare_type" validate:"required,oneof=Adult Child"`
	Name     string `json:"name" validate:"required"`
	NIN      string `json:"nin" validate:"required,len=11,numeric"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
}

type contactReq struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required"`
}

type createBookingReq struct {
	TrainID    uint64         `json:"train_id" validate:"required"`
	ClassType  string         `json:"class_type" validate:"required"`
	Coach      string         `json:"coach" validate:"required"`
	Seats      []uint32       `json:"seats" validate:"required,min=1"`
	Passengers []passengerReq `json:"passengers" validate:"required,min=1,dive"`
	Contact    contactReq     `json:"contact" validate:"required"`
}

// Create handles POST /v1/bookings.  On success it responds 201 with
// the pending booking; payment is a separate step.  Seat validation
// failures map to 400 and conflicts with other live bookings to 409.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if len(req.Passengers) != len(req.Seats) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passengers and seats must match one to one"})
	}

	passengers := make([]model.Passenger, len(req.Passengers))
	for i, p := range req.Passengers {
		passengers[i] = model.Passenger{
			FareType: p.FareType,
			Name:     strings.TrimSpace(p.Name),
			NIN:      p.NIN,
			Email:    strings.ToLower(strings.TrimSpace(p.Email)),
			Phone:    strings.TrimSpace(p.Phone),
		}
	}

	booking, err := h.Ledger.Reserve(c.Request().Context(), ledger.ReserveRequest{
		UserID:     userID,
		TrainID:    req.TrainID,
		ClassType:  req.ClassType,
		Coach:      req.Coach,
		Seats:      req.Seats,
		Passengers: passengers,
		Contact:    model.Contact{Email: strings.ToLower(strings.TrimSpace(req.Contact.Email)), Phone: strings.TrimSpace(req.Contact.Phone)},
	})
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": booking})
}

// List handles GET /v1/bookings.  An optional ?status= query filters
// by lifecycle state.
func (h *BookingHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	status := strings.ToLower(strings.TrimSpace(c.QueryParam("status")))
	switch status {
	case "", model.BookingPending, model.BookingConfirmed, model.BookingCancelled:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	items, err := h.Bookings.ListByUser(c.Request().Context(), userID, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListConfirmed handles GET /v1/bookings/confirmed, a shortcut for the
// paid-bookings view.
func (h *BookingHandler) ListConfirmed(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Bookings.ListByUser(c.Request().Context(), userID, model.BookingConfirmed)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/bookings/:id.  Only the owner may read a booking.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	booking, err := h.Bookings.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrBookingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if booking.UserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": booking})
}

// Cancel handles POST /v1/bookings/:code/cancel.  Cancelling releases
// the booking's seats back to the partition.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking code"})
	}
	booking, err := h.Ledger.Cancel(c.Request().Context(), code, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, ledger.ErrAlreadyCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": booking})
}

// bookingError maps ledger failures to HTTP responses.  Validation
// problems are the client's fault (400), losing a race over seats or
// capacity is a conflict (409).
func bookingError(c echo.Context, err error) error {
	var rangeErr *ledger.InvalidSeatRangeError
	var conflictErr *ledger.SeatConflictError
	var capErr *ledger.CapacityError
	switch {
	case errors.Is(err, repository.ErrTrainNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "train not found"})
	case errors.Is(err, ledger.ErrClassNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found on this train"})
	case errors.Is(err, ledger.ErrNoSeats),
		errors.Is(err, ledger.ErrPassengerSeatMismatch),
		errors.Is(err, ledger.ErrDuplicateSeatNumbers),
		errors.Is(err, ledger.ErrUnknownFareType):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &rangeErr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": rangeErr.Error()})
	case errors.Is(err, ledger.ErrDuplicateBooking):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.As(err, &conflictErr):
		return c.JSON(http.StatusConflict, echo.Map{"error": conflictErr.Error(), "seats": conflictErr.Seats})
	case errors.As(err, &capErr):
		return c.JSON(http.StatusConflict, echo.Map{"error": capErr.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed"})
}
