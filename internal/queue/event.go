// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published after a booking commit succeeds.
// It carries enough of the booking and its event for downstream
// consumers to log or notify without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID        uint64 `json:"booking_id"`
	UserID           uint64 `json:"user_id"`
	EventID          uint64 `json:"event_id"`
	EventTitle       string `json:"event_title"`
	Location         string `json:"location"`
	StartsAt         string `json:"starts_at"`
	Seats            []int  `json:"seats"`
	Quantity         int    `json:"quantity"`
	TotalAmountCents int64  `json:"total_amount_cents"`
	ConfirmedAt      string `json:"confirmed_at"`
}
