// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrEventNotFound is returned when no event row matches the requested id.
var ErrEventNotFound = errors.New("event not found")

// ErrBookingNotFound is returned when no booking row matches the requested id.
var ErrBookingNotFound = errors.New("booking not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a guarded update matched no row because
// the current state no longer satisfies its precondition, such as a
// capacity decrement that would take available seats below zero.
var ErrConflict = errors.New("conflict")
