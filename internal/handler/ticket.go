package handler

import (
	"errors"   // ticket error comparisons
	"fmt"      // attachment filename
	"net/http" // HTTP status codes
	"strings"  // code normalization

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/railway-ticket-booking/internal/model"      // domain models
	"github.com/iliyamo/railway-ticket-booking/internal/repository" // repository layer
	"github.com/iliyamo/railway-ticket-booking/internal/ticket"     // rendering and delivery
)

// TicketHandler serves issued tickets: lookup by booking code, email
// re-delivery and PDF download.  Tickets exist only for confirmed
// bookings.
type TicketHandler struct {
	Bookings *repository.BookingRepo
	Trains   *repository.TrainRepo
	Tickets  *ticket.Dispatcher
}

// NewTicketHandler constructs a TicketHandler and panics on nil dependencies.
func NewTicketHandler(bookings *repository.BookingRepo, trains *repository.TrainRepo, tickets *ticket.Dispatcher) *TicketHandler {
	if bookings == nil || trains == nil || tickets == nil {
		panic("nil dependency passed to NewTicketHandler")
	}
	return &TicketHandler{Bookings: bookings, Trains: trains, Tickets: tickets}
}

// List handles GET /v1/tickets.  It returns the caller's confirmed
// bookings, which are exactly the bookings with issued tickets.
func (h *TicketHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Bookings.ListByUser(c.Request().Context(), userID, model.BookingConfirmed)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load tickets"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// loadOwned fetches a confirmed booking by code, enforces ownership
// and resolves its train so the schedule is available for rendering.
func (h *TicketHandler) loadOwned(c echo.Context) (*model.Booking, error) {
	userID, err := getUserID(c)
	if err != nil {
		return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking code"})
	}
	booking, err := h.Bookings.GetByCode(c.Request().Context(), code)
	if err != nil {
		if err == repository.ErrBookingNotFound {
			return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if booking.UserID != userID {
		return nil, c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if booking.Status != model.BookingConfirmed {
		return nil, c.JSON(http.StatusConflict, echo.Map{"error": "booking is not confirmed"})
	}
	train, err := h.Trains.GetByID(c.Request().Context(), booking.TrainID)
	if err != nil {
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load train"})
	}
	booking.Train = train
	return booking, nil
}

// Get handles GET /v1/tickets/:code.
func (h *TicketHandler) Get(c echo.Context) error {
	booking, err := h.loadOwned(c)
	if booking == nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"item": booking})
}

// Resend handles POST /v1/tickets/:code/resend.  It re-renders and
// re-sends every ticket email of the booking.
func (h *TicketHandler) Resend(c echo.Context) error {
	booking, err := h.loadOwned(c)
	if booking == nil {
		return err
	}
	if err := h.Tickets.Dispatch(c.Request().Context(), booking); err != nil {
		var missing *ticket.MissingFieldError
		if errors.Is(err, ticket.ErrIncompleteSchedule) || errors.As(err, &missing) {
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "ticket delivery failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "sent"})
}

// DownloadPDF handles GET /v1/tickets/:code/pdf.  One page per
// passenger, rendered on demand from the booking snapshot.
func (h *TicketHandler) DownloadPDF(c echo.Context) error {
	booking, err := h.loadOwned(c)
	if booking == nil {
		return err
	}
	blob, err := ticket.RenderPDF(booking)
	if err != nil {
		if errors.Is(err, ticket.ErrIncompleteSchedule) {
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to render ticket"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s.pdf", booking.Code))
	return c.Blob(http.StatusOK, "application/pdf", blob)
}
