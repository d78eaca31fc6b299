// Package service holds the booking committer and the event catalogue
// operations the HTTP layer calls.
package service

import (
	"errors"

	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// Error taxonomy.  Anything not matching one of these is unexpected.
var (
	// ErrInvalidRequest marks malformed or missing input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound marks a referenced event or booking that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientCapacity marks a commit rejected by the capacity check.
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	// ErrConflict is reserved for concurrent modification detection.  The
	// committer does not produce it; a lost race surfaces as
	// ErrInsufficientCapacity.
	ErrConflict = errors.New("conflict")
	// ErrForbidden marks access to another user's booking.
	ErrForbidden = repository.ErrForbidden
)
