package middleware

import (
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // middleware chaining and context
)

// RequireRole aborts a request with 403 unless the "role" claim placed
// in the context by JWTAuth matches one of the given roles.  Admin-only
// train management and the shared customer routes both hang off this.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
