package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking.  Bookings
// are never physically deleted; they move into one of the terminal
// states instead.
type BookingStatus string

const (
	// BookingPending is the initial state of a regular booking.  It counts
	// towards conflict detection.
	BookingPending BookingStatus = "PENDING"
	// BookingApproved marks a booking whose window is currently ongoing.
	// Quick bookings are created directly in this state.
	BookingApproved BookingStatus = "APPROVED"
	// BookingRejected is set by an administrator and is terminal.
	BookingRejected BookingStatus = "REJECTED"
	// BookingCancelled is set by the owning user.  A cancelled booking no
	// longer blocks the room but still expires once its window has passed.
	BookingCancelled BookingStatus = "CANCELLED"
	// BookingCompleted is set by an administrator and is terminal.
	BookingCompleted BookingStatus = "COMPLETED"
	// BookingExpired marks a booking whose end time has passed.
	BookingExpired BookingStatus = "EXPIRED"
)

// ActiveStatuses are the statuses that block a room for conflict
// purposes.  Everything else never conflicts.
var ActiveStatuses = []BookingStatus{BookingPending, BookingApproved}

// IsActive reports whether the status counts towards availability
// conflicts.
func (s BookingStatus) IsActive() bool {
	return s == BookingPending || s == BookingApproved
}

// IsTerminal reports whether the lifecycle manager must never touch a
// booking in this status.  Cancelled bookings are NOT terminal with
// respect to expiry.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingRejected || s == BookingCompleted
}

// Booking mirrors the `bookings` table.  StartsAt and EndsAt are stored
// in UTC; the interval is half-open [StartsAt, EndsAt).
//
// Fields:
//  ID        – primary key identifier.
//  RoomID    – room being booked.
//  UserID    – user who created the booking.
//  Title     – free-text title, at most 255 characters.
//  StartsAt  – start of the booked interval (UTC).
//  EndsAt    – end of the booked interval (UTC, exclusive).
//  Status    – current lifecycle state.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Booking struct {
	ID        uint64        `json:"id"`
	RoomID    uint64        `json:"room_id"`
	UserID    uint64        `json:"user_id"`
	Title     string        `json:"title"`
	StartsAt  time.Time     `json:"starts_at"`
	EndsAt    time.Time     `json:"ends_at"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
