package model

import "time"

// EventStatus is informational only; it never gates a booking.
type EventStatus string

const (
	EventUpcoming EventStatus = "upcoming"
	EventLive     EventStatus = "live"
	EventClosed   EventStatus = "closed"
)

// Valid reports whether s is one of the known event statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case EventUpcoming, EventLive, EventClosed:
		return true
	}
	return false
}

// Event is a row of the `events` table and doubles as the capacity
// record for admission control.  AvailableSeats is only ever mutated by
// the booking commit and never drops below zero.
//
// Fields:
//  ID             – primary key identifier.
//  Title          – display title.
//  Description    – optional free text.
//  Location       – venue description.
//  StartsAt       – when the event takes place.
//  TotalSeats     – capacity fixed at creation.
//  AvailableSeats – unsold seats remaining.
//  PriceCents     – price of a single seat in cents.
//  Status         – upcoming, live or closed.
type Event struct {
	ID             uint64      `json:"id"`              // events.id
	Title          string      `json:"title"`           // events.title
	Description    string      `json:"description"`     // events.description
	Location       string      `json:"location"`        // events.location
	StartsAt       time.Time   `json:"starts_at"`       // events.starts_at
	TotalSeats     int         `json:"total_seats"`     // events.total_seats
	AvailableSeats int         `json:"available_seats"` // events.available_seats
	PriceCents     int64       `json:"price_cents"`     // events.price_cents
	Status         EventStatus `json:"status"`          // events.status
	CreatedAt      time.Time   `json:"created_at"`      // events.created_at
	UpdatedAt      time.Time   `json:"updated_at"`      // events.updated_at
}

// EventSummary is the slice of an event joined into booking projections.
type EventSummary struct {
	Title    string    `json:"event_title"`
	StartsAt time.Time `json:"event_starts_at"`
	Location string    `json:"event_location"`
}
