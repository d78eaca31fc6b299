package model

import "time"

// BookingStatus tracks the administrative lifecycle of a booking.
// Bookings are created confirmed and may later move to cancelled (or
// back to pending) through an administrative status update.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is one of the known booking statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled:
		return true
	}
	return false
}

// ContactInfo is the optional contact data captured with a booking.
type ContactInfo struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

// Booking records a durable reservation of Quantity seats for an
// event.  Seats is advisory metadata captured from the client's
// selection; capacity is enforced from Quantity alone.  Bookings are
// never deleted.
//
// Fields:
//  ID               – primary key identifier.
//  EventID          – event being booked.
//  UserID           – user who made the booking.
//  Seats            – seat indices chosen client side (may be empty).
//  Quantity         – number of seats deducted from capacity.
//  TotalAmountCents – total price in cents.
//  Status           – pending, confirmed or cancelled.
//  Contact          – name, email and mobile supplied at checkout.
//  Event            – joined event details; nil when not loaded.
type Booking struct {
	ID               uint64        // bookings.id
	EventID          uint64        // bookings.event_id
	UserID           uint64        // bookings.user_id
	Seats            SeatSet       // bookings.seats (JSON array)
	Quantity         int           // bookings.quantity
	TotalAmountCents int64         // bookings.total_amount_cents
	Status           BookingStatus // bookings.status
	Contact          ContactInfo   // bookings.contact_*
	CreatedAt        time.Time     // bookings.created_at
	UpdatedAt        time.Time     // bookings.updated_at
	Event            *EventSummary
}
