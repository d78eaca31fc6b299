package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Frame types exchanged over the websocket.  Every frame is an Envelope
// whose Data is decoded according to Type.
const (
	TypeJoin       = "join"
	TypeLeave      = "leave"
	TypeLockSeat   = "lockSeat"
	TypeUnlockSeat = "unlockSeat"

	TypeLockedSeats  = "lockedSeats"
	TypeSeatLocked   = "seatLocked"
	TypeSeatUnlocked = "seatUnlocked"
	TypeLockRejected = "lockRejected"
	TypeError        = "error"
)

// Error codes carried by ErrorMessage.
const (
	CodeBadFrame    = "bad_frame"
	CodeUnknownType = "unknown_type"
	CodeInvalid     = "invalid_request"
	CodeNotJoined   = "not_joined"
)

var errInvalidMessage = errors.New("invalid message")

// Envelope is the outer JSON shape of every frame: {"type": ..., "data": {...}}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// JoinRequest subscribes the connection to an event group.  Leave uses
// the same payload.
type JoinRequest struct {
	EventID uint64 `json:"event_id"`
}

func (r JoinRequest) Validate() error {
	if r.EventID == 0 {
		return fmt.Errorf("%w: event_id is required", errInvalidMessage)
	}
	return nil
}

// LockSeatRequest asks for a tentative hold.  HolderID is optional; the
// connection's default holder is used when it is empty.
type LockSeatRequest struct {
	EventID   uint64 `json:"event_id"`
	SeatIndex *int   `json:"seat_index"`
	HolderID  string `json:"holder_id,omitempty"`
}

func (r LockSeatRequest) Validate() error {
	return validateSeat(r.EventID, r.SeatIndex)
}

// UnlockSeatRequest releases a hold.
type UnlockSeatRequest struct {
	EventID   uint64 `json:"event_id"`
	SeatIndex *int   `json:"seat_index"`
}

func (r UnlockSeatRequest) Validate() error {
	return validateSeat(r.EventID, r.SeatIndex)
}

func validateSeat(eventID uint64, seat *int) error {
	if eventID == 0 {
		return fmt.Errorf("%w: event_id is required", errInvalidMessage)
	}
	if seat == nil {
		return fmt.Errorf("%w: seat_index is required", errInvalidMessage)
	}
	if *seat < 0 {
		return fmt.Errorf("%w: seat_index must not be negative", errInvalidMessage)
	}
	return nil
}

// LockedSeats is the snapshot sent on join.  Seats maps seat index to
// holder id; JSON object keys are the decimal seat indices.
type LockedSeats struct {
	EventID uint64         `json:"event_id"`
	Seats   map[int]string `json:"seats"`
}

// SeatLocked announces an applied lock.  LockRejected reuses the shape
// and carries the current holder.
type SeatLocked struct {
	EventID   uint64 `json:"event_id"`
	SeatIndex int    `json:"seat_index"`
	HolderID  string `json:"holder_id"`
}

// SeatUnlocked announces a removed lock.
type SeatUnlocked struct {
	EventID   uint64 `json:"event_id"`
	SeatIndex int    `json:"seat_index"`
}

// ErrorMessage reports a frame the server could not act on.
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// encode wraps a payload into an Envelope and marshals it.
func encode(typ string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: typ, Data: data})
}

func mustEncode(typ string, payload any) []byte {
	b, err := encode(typ, payload)
	if err != nil {
		// every payload above is plain data
		panic(fmt.Sprintf("realtime: encode %s: %v", typ, err))
	}
	return b
}

// decodeData unmarshals an envelope's data into v and validates it.
func decodeData(env Envelope, v interface{ Validate() error }) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: data is required", errInvalidMessage)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidMessage, err)
	}
	return v.Validate()
}
