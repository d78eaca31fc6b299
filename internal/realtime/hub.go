package realtime

import (
	"context"
	"errors"
	"log/slog"

	"github.com/iliyamo/event-ticket-booking/internal/config"
)

var (
	// ErrHubClosed is returned by every Hub method once Run has returned.
	ErrHubClosed = errors.New("realtime: hub closed")
	// ErrNotJoined is returned when a connection acts on an event group
	// it has not joined.
	ErrNotJoined = errors.New("realtime: connection has not joined event")
	// ErrUnknownClient is returned for a connection that is not registered.
	ErrUnknownClient = errors.New("realtime: unknown connection")
)

// Hub owns the LockTable and the per-event subscriber groups.  All state
// is touched only by the goroutine running Run; the exported methods
// submit a command to it and wait for the result.  Frames for a group are
// enqueued to each member's send buffer in the order the commands ran.
type Hub struct {
	cmds chan func()
	done chan struct{}

	table   *LockTable
	groups  map[uint64]map[*Client]struct{}
	clients map[*Client]map[uint64]struct{} // registered client -> joined events

	strictUnlock        bool
	releaseOnDisconnect bool
	log                 *slog.Logger
}

// NewHub builds a hub.  Call Run to start processing.
func NewHub(cfg config.LockConfig, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		cmds:                make(chan func()),
		done:                make(chan struct{}),
		table:               NewLockTable(),
		groups:              make(map[uint64]map[*Client]struct{}),
		clients:             make(map[*Client]map[uint64]struct{}),
		strictUnlock:        cfg.StrictUnlock,
		releaseOnDisconnect: cfg.ReleaseOnDisconnect,
		log:                 logger.With("component", "realtime.hub"),
	}
}

// Run processes commands until ctx is cancelled.  On return every
// registered client's send buffer is closed.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-h.cmds:
			fn()
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	for c := range h.clients {
		close(c.send)
	}
	h.clients = map[*Client]map[uint64]struct{}{}
	h.groups = map[uint64]map[*Client]struct{}{}
}

// call runs fn on the hub goroutine and waits for it.
func (h *Hub) call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	select {
	case h.cmds <- func() { fn(); close(ran) }:
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-h.done:
		select {
		case <-ran:
			return nil
		default:
			return ErrHubClosed
		}
	}
}

// Register makes c eligible to join groups.
func (h *Hub) Register(ctx context.Context, c *Client) error {
	return h.call(ctx, func() {
		if _, ok := h.clients[c]; !ok {
			h.clients[c] = make(map[uint64]struct{})
		}
	})
}

// Unregister removes c from every group and closes its send buffer.
// When release on disconnect is enabled the locks c acquired are freed
// and announced.  Unregistering twice is a no-op.
func (h *Hub) Unregister(ctx context.Context, c *Client) error {
	return h.call(ctx, func() { h.disconnect(c, "closed") })
}

// Join subscribes c to the event group and sends it the current
// snapshot.  Joining again re-sends the snapshot.
func (h *Hub) Join(ctx context.Context, c *Client, eventID uint64) (map[int]string, error) {
	var snap map[int]string
	var opErr error
	err := h.call(ctx, func() {
		joined, ok := h.clients[c]
		if !ok {
			opErr = ErrUnknownClient
			return
		}
		if _, already := joined[eventID]; !already {
			joined[eventID] = struct{}{}
			g := h.groups[eventID]
			if g == nil {
				g = make(map[*Client]struct{})
				h.groups[eventID] = g
			}
			g[c] = struct{}{}
			h.log.Debug("joined", "conn_id", c.id, "event_id", eventID)
		}
		snap = h.table.Snapshot(eventID)
		h.reply(c, mustEncode(TypeLockedSeats, LockedSeats{EventID: eventID, Seats: snap}))
	})
	if err != nil {
		return nil, err
	}
	return snap, opErr
}

// Leave drops c from one event group.  Locks are kept.
func (h *Hub) Leave(ctx context.Context, c *Client, eventID uint64) error {
	return h.call(ctx, func() {
		joined, ok := h.clients[c]
		if !ok {
			return
		}
		delete(joined, eventID)
		h.removeMember(eventID, c)
		h.log.Debug("left", "conn_id", c.id, "event_id", eventID)
	})
}

// Lock tries to hold seat for holder.  An applied lock is published to
// the whole group, originator included.  A rejected lock is reported to
// the originator only, with the current holder.
func (h *Hub) Lock(ctx context.Context, c *Client, eventID uint64, seat int, holder string) (LockResult, error) {
	res := LockRejected
	var opErr error
	err := h.call(ctx, func() {
		if !h.isMember(c, eventID) {
			opErr = ErrNotJoined
			h.reply(c, mustEncode(TypeError, ErrorMessage{Code: CodeNotJoined, Message: "join the event first"}))
			return
		}
		res = h.table.Lock(eventID, seat, holder, c.id)
		if res == LockApplied {
			h.publish(eventID, mustEncode(TypeSeatLocked, SeatLocked{EventID: eventID, SeatIndex: seat, HolderID: holder}))
			return
		}
		current, _ := h.table.Holder(eventID, seat)
		h.reply(c, mustEncode(TypeLockRejected, SeatLocked{EventID: eventID, SeatIndex: seat, HolderID: current}))
	})
	if err != nil {
		return LockRejected, err
	}
	return res, opErr
}

// Unlock releases seat on behalf of c.  A removal is published to the
// group; a refused or absent lock is a silent no-op.
func (h *Hub) Unlock(ctx context.Context, c *Client, eventID uint64, seat int) (bool, error) {
	var removed bool
	var opErr error
	err := h.call(ctx, func() {
		if !h.isMember(c, eventID) {
			opErr = ErrNotJoined
			h.reply(c, mustEncode(TypeError, ErrorMessage{Code: CodeNotJoined, Message: "join the event first"}))
			return
		}
		removed = h.table.Unlock(eventID, seat, c.holder, c.id, h.strictUnlock)
		if removed {
			h.publish(eventID, mustEncode(TypeSeatUnlocked, SeatUnlocked{EventID: eventID, SeatIndex: seat}))
		}
	})
	if err != nil {
		return false, err
	}
	return removed, opErr
}

// Release frees seats after a booking commit, whoever holds them, and
// publishes one seatUnlocked per freed seat.
func (h *Hub) Release(ctx context.Context, eventID uint64, seats []int) error {
	if len(seats) == 0 {
		return nil
	}
	return h.call(ctx, func() {
		for _, s := range h.table.Release(eventID, seats) {
			h.publish(eventID, mustEncode(TypeSeatUnlocked, SeatUnlocked{EventID: eventID, SeatIndex: s}))
		}
	})
}

// Snapshot returns the event's current locks.
func (h *Hub) Snapshot(ctx context.Context, eventID uint64) (map[int]string, error) {
	var snap map[int]string
	err := h.call(ctx, func() { snap = h.table.Snapshot(eventID) })
	return snap, err
}

// Notify sends an error frame to c only.
func (h *Hub) Notify(ctx context.Context, c *Client, code, message string) error {
	return h.call(ctx, func() {
		h.reply(c, mustEncode(TypeError, ErrorMessage{Code: code, Message: message}))
	})
}

func (h *Hub) isMember(c *Client, eventID uint64) bool {
	_, ok := h.clients[c][eventID]
	return ok
}

func (h *Hub) removeMember(eventID uint64, c *Client) {
	g := h.groups[eventID]
	delete(g, c)
	if len(g) == 0 {
		delete(h.groups, eventID)
	}
}

// publish enqueues msg to every member of the group.  Members whose
// buffer is full are disconnected after the loop so the remaining
// members still see frames in issue order.
func (h *Hub) publish(eventID uint64, msg []byte) {
	var lagging []*Client
	for c := range h.groups[eventID] {
		if !c.enqueue(msg) {
			lagging = append(lagging, c)
		}
	}
	for _, c := range lagging {
		h.disconnect(c, "send buffer full")
	}
}

func (h *Hub) reply(c *Client, msg []byte) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	if !c.enqueue(msg) {
		h.disconnect(c, "send buffer full")
	}
}

func (h *Hub) disconnect(c *Client, reason string) {
	joined, ok := h.clients[c]
	if !ok {
		return
	}
	delete(h.clients, c)
	for eventID := range joined {
		h.removeMember(eventID, c)
	}
	close(c.send)
	h.log.Debug("disconnected", "conn_id", c.id, "reason", reason)

	if !h.releaseOnDisconnect {
		return
	}
	for eventID, seats := range h.table.ReleaseConn(c.id) {
		for _, s := range seats {
			h.publish(eventID, mustEncode(TypeSeatUnlocked, SeatUnlocked{EventID: eventID, SeatIndex: s}))
		}
	}
}
