package handler

import (
	"net/http" // status codes

	"github.com/labstack/echo/v4" // web framework
)

// Health answers liveness probes.  It reports the service name so a
// misrouted probe is easy to spot in load balancer logs.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "railway-ticket-booking"})
}
