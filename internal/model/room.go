package model

import "time"

// Room represents a bookable meeting room.  Rooms are read-mostly and
// maintained by administrators; deactivating a room hides it from search
// and blocks new bookings without touching existing ones.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – human-readable room name.
//  Location    – building/floor descriptor used for filtering.
//  Capacity    – number of seats in the room.
//  Description – optional free-text details.
//  IsActive    – whether the room accepts new bookings.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Room struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Capacity    uint32    `json:"capacity"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
