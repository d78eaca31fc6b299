package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/service"
)

// Error codes returned in the "code" field of error bodies.
const (
	codeInvalidRequest       = "invalid_request"
	codeInsufficientCapacity = "insufficient_capacity"
	codeNotFound             = "not_found"
	codeForbidden            = "forbidden"
	codeConflict             = "conflict"
	codeUnauthorized         = "unauthorized"
	codeInternal             = "internal"
)

func errorJSON(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"error": msg, "code": code})
}

func badRequest(c echo.Context, msg string) error {
	return errorJSON(c, http.StatusBadRequest, codeInvalidRequest, msg)
}

// writeError maps the service error taxonomy onto HTTP.  Validation and
// capacity failures are both 400 but carry distinct codes.  Anything
// unrecognised is logged and answered with an opaque 500.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return errorJSON(c, http.StatusBadRequest, codeInvalidRequest, err.Error())
	case errors.Is(err, service.ErrInsufficientCapacity):
		return errorJSON(c, http.StatusBadRequest, codeInsufficientCapacity, "not enough seats available")
	case errors.Is(err, service.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return errorJSON(c, http.StatusForbidden, codeForbidden, "forbidden")
	case errors.Is(err, service.ErrConflict):
		return errorJSON(c, http.StatusConflict, codeConflict, err.Error())
	}
	slog.Default().Error("request failed",
		"method", c.Request().Method, "path", c.Path(), "error", err)
	return errorJSON(c, http.StatusInternalServerError, codeInternal, "internal error")
}
