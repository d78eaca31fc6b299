package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iliyamo/event-ticket-booking/internal/config"
)

// Client is one websocket connection.  The hub is the only writer of
// send and the only one that closes it; the write pump drains it.
type Client struct {
	id            string
	holder        string // default holder id for lockSeat
	authenticated bool   // holder came from a verified token
	send          chan []byte

	hub  *Hub
	conn *websocket.Conn
	cfg  config.LockConfig
	log  *slog.Logger
}

// NewClient wraps conn.  A non-empty userHolder (the authenticated user
// id) becomes the connection's holder and cannot be overridden by
// lockSeat frames; otherwise the connection id is the default holder.
func NewClient(hub *Hub, conn *websocket.Conn, userHolder string, cfg config.LockConfig) *Client {
	c := newClient(uuid.NewString(), userHolder, cfg.SendBuffer)
	c.hub = hub
	c.conn = conn
	c.cfg = cfg
	c.log = hub.log.With("conn_id", c.id)
	return c
}

func newClient(id, userHolder string, buffer int) *Client {
	if buffer < 1 {
		buffer = 1
	}
	c := &Client{id: id, holder: userHolder, authenticated: userHolder != "", send: make(chan []byte, buffer)}
	if c.holder == "" {
		c.holder = id
	}
	return c
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// Holder returns the default holder id.
func (c *Client) Holder() string { return c.holder }

func (c *Client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Serve registers the client, pumps frames until the connection fails
// or ctx ends, then unregisters.  It blocks.
func (c *Client) Serve(ctx context.Context) {
	defer c.conn.Close()
	if err := c.hub.Register(ctx, c); err != nil {
		c.log.Warn("register failed", "error", err)
		return
	}
	c.log.Info("connected", "holder", c.holder)

	written := make(chan struct{})
	go func() {
		defer close(written)
		c.writePump()
	}()

	c.readPump(ctx)

	// use a fresh context: the request context may already be done
	uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.hub.Unregister(uctx, c); err != nil && !errors.Is(err, ErrHubClosed) {
		c.log.Warn("unregister failed", "error", err)
	}
	<-written
	c.log.Info("disconnected")
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(c.cfg.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read failed", "error", err)
			}
			return
		}
		if err := c.handleFrame(ctx, data); errors.Is(err, ErrHubClosed) || errors.Is(err, context.Canceled) {
			return
		}
	}
}

// handleFrame decodes one client frame and dispatches it to the hub.
// Malformed frames get an error reply and leave shared state untouched.
func (c *Client) handleFrame(ctx context.Context, data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		return c.hub.Notify(ctx, c, CodeBadFrame, "frame must be a JSON object with a type")
	}

	switch env.Type {
	case TypeJoin:
		var req JoinRequest
		if err := decodeData(env, &req); err != nil {
			return c.hub.Notify(ctx, c, CodeInvalid, err.Error())
		}
		_, err := c.hub.Join(ctx, c, req.EventID)
		return err
	case TypeLeave:
		var req JoinRequest
		if err := decodeData(env, &req); err != nil {
			return c.hub.Notify(ctx, c, CodeInvalid, err.Error())
		}
		return c.hub.Leave(ctx, c, req.EventID)
	case TypeLockSeat:
		var req LockSeatRequest
		if err := decodeData(env, &req); err != nil {
			return c.hub.Notify(ctx, c, CodeInvalid, err.Error())
		}
		_, err := c.hub.Lock(ctx, c, req.EventID, *req.SeatIndex, c.holderFor(req.HolderID))
		return ignoreNotJoined(err)
	case TypeUnlockSeat:
		var req UnlockSeatRequest
		if err := decodeData(env, &req); err != nil {
			return c.hub.Notify(ctx, c, CodeInvalid, err.Error())
		}
		_, err := c.hub.Unlock(ctx, c, req.EventID, *req.SeatIndex)
		return ignoreNotJoined(err)
	default:
		return c.hub.Notify(ctx, c, CodeUnknownType, "unknown frame type "+env.Type)
	}
}

// holderFor picks the holder for a lockSeat frame.
func (c *Client) holderFor(requested string) string {
	if c.authenticated || requested == "" {
		return c.holder
	}
	return requested
}

func ignoreNotJoined(err error) error {
	if errors.Is(err, ErrNotJoined) {
		return nil
	}
	return err
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
