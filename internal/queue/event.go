// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/room-booking/internal/model"
)

// Event types carried in BookingEvent.Type.
const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
	EventBookingRejected  = "booking.rejected"
	EventBookingCompleted = "booking.completed"
)

// BookingEvent is published whenever a booking changes hands: created,
// cancelled by its owner, or moderated by an administrator.  It carries
// enough information for downstream consumers to log or notify without
// querying the primary database.
type BookingEvent struct {
	Type       string `json:"type"`
	BookingID  uint64 `json:"booking_id"`
	RoomID     uint64 `json:"room_id"`
	UserID     uint64 `json:"user_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	StartsAt   string `json:"starts_at"`
	EndsAt     string `json:"ends_at"`
	OccurredAt string `json:"occurred_at"`
}

// NewBookingEvent snapshots a booking into an event payload.
func NewBookingEvent(eventType string, b model.Booking) BookingEvent {
	return BookingEvent{
		Type:       eventType,
		BookingID:  b.ID,
		RoomID:     b.RoomID,
		UserID:     b.UserID,
		Title:      b.Title,
		Status:     string(b.Status),
		StartsAt:   b.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:     b.EndsAt.UTC().Format(time.RFC3339),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
