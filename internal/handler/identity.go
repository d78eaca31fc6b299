package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/middleware"
	"github.com/iliyamo/event-ticket-booking/internal/service"
)

// viewer builds the service viewer from the authenticated identity.
func viewer(c echo.Context) (service.Viewer, bool) {
	id, role, ok := middleware.CurrentUser(c)
	if !ok {
		return service.Viewer{}, false
	}
	return service.Viewer{UserID: id, Admin: role == middleware.RoleAdmin}, true
}

// idParam parses a positive integer path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
