package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/config"
	"github.com/iliyamo/event-ticket-booking/internal/realtime"
	"github.com/iliyamo/event-ticket-booking/internal/utils"
)

// RealtimeHandler upgrades GET /v1/ws to the seat-lock channel.
type RealtimeHandler struct {
	hub      *realtime.Hub
	cfg      config.LockConfig
	secret   string
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(hub *realtime.Hub, cfg config.LockConfig, jwtSecret string) *RealtimeHandler {
	return &RealtimeHandler{
		hub:    hub,
		cfg:    cfg,
		secret: jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Serve handles the upgrade.  An optional ?token= access token makes the
// user id the connection's lock holder; an invalid token is refused
// with 401 before upgrading.  Anonymous connections hold locks under
// their connection id.
func (h *RealtimeHandler) Serve(c echo.Context) error {
	holder := ""
	if raw := c.QueryParam("token"); raw != "" {
		id, err := utils.ParseAccessToken(h.secret, raw)
		if err != nil {
			return errorJSON(c, http.StatusUnauthorized, codeUnauthorized, "invalid token")
		}
		holder = strconv.FormatUint(id.UserID, 10)
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written an HTTP error
		return nil
	}
	realtime.NewClient(h.hub, conn, holder, h.cfg).Serve(c.Request().Context())
	return nil
}
