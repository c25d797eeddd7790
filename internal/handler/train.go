package handler

import (
	"net/http" // HTTP status codes
	"strconv"  // parsing path parameters
	"strings"  // query parameter normalization

	"github.com/go-playground/validator/v10" // request payload validation
	"github.com/labstack/echo/v4"            // Echo web framework

	"github.com/iliyamo/railway-ticket-booking/internal/model"      // domain models
	"github.com/iliyamo/railway-ticket-booking/internal/repository" // repository layer
)

// TrainHandler serves the schedule directory.  Read endpoints are
// public; create, update and delete require the ADMIN role, enforced
// by middleware on the admin route group.
type TrainHandler struct {
	Trains   *repository.TrainRepo
	Validate *validator.Validate
}

// NewTrainHandler constructs a TrainHandler and panics on a nil repository.
func NewTrainHandler(trains *repository.TrainRepo) *TrainHandler {
	if trains == nil {
		panic("nil repository passed to NewTrainHandler")
	}
	return &TrainHandler{Trains: trains, Validate: validator.New()}
}

// ----- DTOs -----

type trainClassReq struct {
	Type       string `json:"type" validate:"required"`
	PriceAdult uint32 `json:"price_adult" validate:"required,gt=0"`
	PriceChild uint32 `json:"price_child" validate:"required,gt=0"`
	TotalSeats uint32 `json:"total_seats" validate:"required,gt=0"`
}

type trainReq struct {
	TrainNumber string        `json:"train_number" validate:"required"`
	Route       string        `json:"route" validate:"required"`
	TimeOfDay   string        `json:"time_of_day"`
	Duration    string        `json:"duration"`
	Departure   routeStopReq  `json:"departure" validate:"required"`
	Arrival     routeStopReq  `json:"arrival" validate:"required"`
	Classes     []trainClassReq `json:"classes" validate:"required,min=1,dive"`
}

type routeStopReq struct {
	Station string `json:"station" validate:"required"`
	Date    string `json:"date" validate:"required"`
	Time    string `json:"time" validate:"required"`
}

func (r trainReq) model() *model.Train {
	t := &model.Train{
		TrainNumber: strings.TrimSpace(r.TrainNumber),
		Route:       strings.TrimSpace(r.Route),
		TimeOfDay:   strings.TrimSpace(r.TimeOfDay),
		Duration:    strings.TrimSpace(r.Duration),
		Departure:   model.RouteStop{Station: r.Departure.Station, Date: r.Departure.Date, Time: r.Departure.Time},
		Arrival:     model.RouteStop{Station: r.Arrival.Station, Date: r.Arrival.Date, Time: r.Arrival.Time},
	}
	for _, cl := range r.Classes {
		t.Classes = append(t.Classes, model.TrainClass{
			Type:       cl.Type,
			PriceAdult: cl.PriceAdult,
			PriceChild: cl.PriceChild,
			TotalSeats: cl.TotalSeats,
		})
	}
	return t
}

// List handles GET /v1/trains.  It returns all trains with their
// classes and derived availability.
func (h *TrainHandler) List(c echo.Context) error {
	trains, err := h.Trains.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load trains"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": trains})
}

// Get handles GET /v1/trains/:id.
func (h *TrainHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}
	t, err := h.Trains.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrTrainNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "train not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": t})
}

// Search handles GET /v1/trains/search?from=&to=&date=.  Matching is
// case-insensitive on stations and only trains with at least one
// available seat are returned.
func (h *TrainHandler) Search(c echo.Context) error {
	from := strings.TrimSpace(c.QueryParam("from"))
	to := strings.TrimSpace(c.QueryParam("to"))
	date := strings.TrimSpace(c.QueryParam("date"))
	if from == "" || to == "" || date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from/to/date are required"})
	}
	trains, err := h.Trains.Search(c.Request().Context(), from, to, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": trains})
}

// AvailableDates handles GET /v1/trains/available-dates.  Booking UIs use it to
// limit date pickers to days that actually have departures.
func (h *TrainHandler) AvailableDates(c echo.Context) error {
	dates, err := h.Trains.AvailableDates(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load dates"})
	}
	return c.JSON(http.StatusOK, echo.Map{"dates": dates})
}

// Create handles POST /v1/admin/trains.
func (h *TrainHandler) Create(c echo.Context) error {
	var req trainReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	t := req.model()
	if err := h.Trains.Create(c.Request().Context(), t); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create train failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": t})
}

// Update handles PUT /v1/admin/trains/:id.  Classes are replaced
// wholesale; seat occupancy in seat_inventory is left untouched.
func (h *TrainHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}
	var req trainReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	t := req.model()
	t.ID = id
	if err := h.Trains.Update(c.Request().Context(), t); err != nil {
		if err == repository.ErrTrainNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "train not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update train failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": t})
}

// Delete handles DELETE /v1/admin/trains/:id.
func (h *TrainHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}
	if err := h.Trains.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrTrainNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "train not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete train failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
