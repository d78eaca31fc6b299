package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/service"
)

// BookingService is what the booking endpoints need from the committer.
type BookingService interface {
	Commit(ctx context.Context, in service.CommitInput) (*model.Booking, error)
	Get(ctx context.Context, id uint64, v service.Viewer) (*model.Booking, error)
	List(ctx context.Context, v service.Viewer, userID *uint64) ([]model.Booking, error)
	SetStatus(ctx context.Context, id uint64, status model.BookingStatus) (*model.Booking, error)
}

// CachePurger drops cached listings after writes that change them.
type CachePurger interface {
	Purge(ctx context.Context) error
}

// BookingHandler serves the booking API.  All routes run behind JWTAuth.
type BookingHandler struct {
	svc   BookingService
	cache CachePurger
}

// NewBookingHandler wires the handler.  cache may be nil.
func NewBookingHandler(svc BookingService, cache CachePurger) *BookingHandler {
	if svc == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{svc: svc, cache: cache}
}

// bookingResponse is the booking projection returned by every endpoint.
type bookingResponse struct {
	ID               uint64              `json:"id"`
	EventID          uint64              `json:"event_id"`
	UserID           uint64              `json:"user_id"`
	Seats            model.SeatSet       `json:"seats"`
	Quantity         int                 `json:"quantity"`
	TotalAmountCents int64               `json:"total_amount_cents"`
	Status           model.BookingStatus `json:"status"`
	CreatedAt        time.Time           `json:"created_at"`
	model.ContactInfo
	EventTitle    string     `json:"event_title"`
	EventStartsAt *time.Time `json:"event_starts_at"`
	EventLocation string     `json:"event_location"`
}

func toBookingResponse(b *model.Booking) bookingResponse {
	r := bookingResponse{
		ID:               b.ID,
		EventID:          b.EventID,
		UserID:           b.UserID,
		Seats:            b.Seats,
		Quantity:         b.Quantity,
		TotalAmountCents: b.TotalAmountCents,
		Status:           b.Status,
		CreatedAt:        b.CreatedAt,
		ContactInfo:      b.Contact,
	}
	if b.Event != nil {
		starts := b.Event.StartsAt
		r.EventTitle, r.EventStartsAt, r.EventLocation = b.Event.Title, &starts, b.Event.Location
	}
	return r
}

func toBookingResponses(bs []model.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bs))
	for i := range bs {
		out = append(out, toBookingResponse(&bs[i]))
	}
	return out
}

type createBookingRequest struct {
	EventID          uint64 `json:"event_id"`
	Quantity         *int   `json:"quantity"`
	Seats            []int  `json:"seats"`
	TotalAmountCents *int64 `json:"total_amount_cents"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Mobile           string `json:"mobile"`
}

// Create handles POST /v1/bookings.  The booking is made for the token
// subject.  quantity defaults to the number of seats and the total to
// the event price times quantity.  Responds 201 with the projection, 400
// for invalid input or insufficient capacity, 404 for an unknown event.
func (h *BookingHandler) Create(c echo.Context) error {
	v, ok := viewer(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
	}
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	b, err := h.svc.Commit(c.Request().Context(), service.CommitInput{
		EventID:          req.EventID,
		UserID:           v.UserID,
		Quantity:         req.Quantity,
		Seats:            req.Seats,
		TotalAmountCents: req.TotalAmountCents,
		Contact:          model.ContactInfo{Name: req.Name, Email: req.Email, Mobile: req.Mobile},
	})
	if err != nil {
		return writeError(c, err)
	}
	if h.cache != nil {
		if err := h.cache.Purge(c.Request().Context()); err != nil {
			c.Logger().Warnf("purge event cache: %v", err)
		}
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// List handles GET /v1/bookings.  Admins see every booking, or one
// user's with ?user_id=; everyone else sees their own.  Newest first.
func (h *BookingHandler) List(c echo.Context) error {
	v, ok := viewer(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
	}
	var filter *uint64
	if raw := c.QueryParam("user_id"); raw != "" && v.Admin {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return badRequest(c, "invalid user_id")
		}
		filter = &id
	}
	bs, err := h.svc.List(c.Request().Context(), v, filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResponses(bs))
}

// ListByUser handles GET /v1/users/:id/bookings.  Non-admins may only
// list their own.
func (h *BookingHandler) ListByUser(c echo.Context) error {
	v, ok := viewer(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
	}
	userID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	bs, err := h.svc.List(c.Request().Context(), v, &userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResponses(bs))
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	v, ok := viewer(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	b, err := h.svc.Get(c.Request().Context(), id, v)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// UpdateStatus handles PUT /v1/admin/bookings/:id/status with body
// {"status": "pending"|"confirmed"|"cancelled"}.  Capacity is not
// changed, cancellation included.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	b, err := h.svc.SetStatus(c.Request().Context(), id, model.BookingStatus(body.Status))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}
