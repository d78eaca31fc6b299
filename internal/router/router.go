package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/handler"
	"github.com/iliyamo/event-ticket-booking/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterPublic registers the guest-facing event browse endpoints.  The
// listing goes through the response cache.
func RegisterPublic(e *echo.Echo, h *handler.EventHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/events", h.List, cache)
	e.GET("/v1/events/:id", h.Get)
}

// RegisterRealtime registers the websocket upgrade.  Authentication is
// optional and handled by the handler through ?token=.
func RegisterRealtime(e *echo.Echo, h *handler.RealtimeHandler, limiter echo.MiddlewareFunc) {
	e.GET("/v1/ws", h.Serve, limiter)
}

// RegisterBookings registers booking endpoints for authenticated users.
// Creating a booking is rate limited per caller.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin, middleware.RoleCustomer),
	)
	g.POST("/bookings", h.Create, limiter)
	g.GET("/bookings", h.List)
	g.GET("/bookings/:id", h.Get)
	g.GET("/users/:id/bookings", h.ListByUser)
}

// RegisterAdmin registers administrative endpoints under /v1/admin.  All
// routes require the ADMIN role.
func RegisterAdmin(e *echo.Echo, bookings *handler.BookingHandler, events *handler.EventHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
	)
	g.POST("/events", events.Create)
	g.PUT("/events/:id/status", events.UpdateStatus)
	g.PUT("/bookings/:id/status", bookings.UpdateStatus)
}
