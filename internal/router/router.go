package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/railway-ticket-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/railway-ticket-booking/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while the protected /v1/me endpoint requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Route group under the /v1/auth prefix for operations that do not
	// require an existing session (register, login).
	g := e.Group("/v1/auth")
	// Register a POST endpoint to handle user registration at /v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to handle user login at /v1/auth/login.
	g.POST("/login", a.Login)

	// Protected group: JWTAuth validates the bearer token and stores the
	// user id and role in the request context for downstream handlers.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ADMIN", "CUSTOMER"))
	// Register a GET endpoint at /v1/me that returns the authenticated user's information.
	auth.GET("/me", a.Me)
}

// RegisterTrains registers the public schedule directory and the admin
// management endpoints.  Read endpoints are open to guests; an optional
// response cache middleware may be passed to wrap them.  Mutating
// endpoints require an ADMIN access token.
func RegisterTrains(e *echo.Echo, t *handler.TrainHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	pub := e.Group("/v1/trains")
	if cache != nil {
		pub.Use(cache)
	}
	// Browse the full directory.
	pub.GET("", t.List)
	// Days that have at least one departure; feeds date pickers.
	pub.GET("/available-dates", t.AvailableDates)
	// Search by origin, destination and travel date.
	pub.GET("/search", t.Search)
	// Single train with classes and derived availability.
	pub.GET("/:id", t.Get)

	admin := e.Group("/v1/admin/trains")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("", t.Create)
	admin.PUT("/:id", t.Update)
	admin.DELETE("/:id", t.Delete)
}

// RegisterBookings registers the booking lifecycle endpoints.  All of
// them require a customer access token.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1/bookings")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN", "CUSTOMER"))
	// Reserve seats; the booking starts pending until paid.
	g.POST("", b.Create)
	// List the caller's bookings, optionally filtered by ?status=.
	g.GET("", b.List)
	// Shortcut for paid bookings; static routes win over /:id in Echo.
	g.GET("/confirmed", b.ListConfirmed)
	// Fetch one booking by internal id.
	g.GET("/:id", b.Get)
	// Cancel by public booking code, releasing the held seats.
	g.POST("/:code/cancel", b.Cancel)
}

// RegisterPayments registers payment initialization plus the two
// gateway entry points.  The callback and webhook carry no bearer
// token: the callback holds only a reference that is verified server
// side, and the webhook is authenticated by its body signature.
func RegisterPayments(e *echo.Echo, p *handler.PaymentHandler, jwtSecret string) {
	g := e.Group("/v1/payments")
	g.GET("/callback", p.Callback)
	g.POST("/webhook", p.Webhook)

	init := g.Group("")
	init.Use(middleware.JWTAuth(jwtSecret))
	init.Use(middleware.RequireRole("ADMIN", "CUSTOMER"))
	init.POST("/initialize", p.Initialize)
}

// RegisterTickets registers issued-ticket endpoints.  Tickets are
// private to the booking owner.
func RegisterTickets(e *echo.Echo, t *handler.TicketHandler, jwtSecret string) {
	g := e.Group("/v1/tickets")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN", "CUSTOMER"))
	g.GET("", t.List)
	g.GET("/:code", t.Get)
	g.POST("/:code/resend", t.Resend)
	g.GET("/:code/pdf", t.DownloadPDF)
}
