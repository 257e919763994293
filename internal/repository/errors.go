// Package repository defines the data access layer.  This file holds
// sentinel error values shared across repositories so handlers can map
// failure scenarios to HTTP responses with errors.Is.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state, such as editing a booking that has already left
// PENDING.  Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrRoomNotFound indicates a room lookup found no row.
var ErrRoomNotFound = errors.New("room not found")

// ErrBookingNotFound indicates a booking lookup found no row.
var ErrBookingNotFound = errors.New("booking not found")

// ErrEmailExists indicates a register attempt with a taken email.
var ErrEmailExists = errors.New("email already exists")
