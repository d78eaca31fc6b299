package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/service"
)

// EventService is the event catalogue used by the event endpoints.
type EventService interface {
	Create(ctx context.Context, in service.CreateEventInput) (*model.Event, error)
	Get(ctx context.Context, id uint64) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	SetStatus(ctx context.Context, id uint64, status model.EventStatus) (*model.Event, error)
}

// EventHandler exposes events publicly and their management to admins.
type EventHandler struct {
	svc   EventService
	cache CachePurger
}

func NewEventHandler(svc EventService, cache CachePurger) *EventHandler {
	if svc == nil {
		panic("nil event service passed to NewEventHandler")
	}
	return &EventHandler{svc: svc, cache: cache}
}

// List handles GET /v1/events.
func (h *EventHandler) List(c echo.Context) error {
	events, err := h.svc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

type createEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	TotalSeats  int       `json:"total_seats"`
	PriceCents  int64     `json:"price_cents"`
	Status      string    `json:"status"`
}

// Create handles POST /v1/admin/events.  starts_at is RFC 3339.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	e, err := h.svc.Create(c.Request().Context(), service.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		TotalSeats:  req.TotalSeats,
		PriceCents:  req.PriceCents,
		Status:      model.EventStatus(req.Status),
	})
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, e)
}

// UpdateStatus handles PUT /v1/admin/events/:id/status.
func (h *EventHandler) UpdateStatus(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	e, err := h.svc.SetStatus(c.Request().Context(), id, model.EventStatus(body.Status))
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, e)
}

func (h *EventHandler) purge(c echo.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Purge(c.Request().Context()); err != nil {
		c.Logger().Warnf("purge event cache: %v", err)
	}
}
