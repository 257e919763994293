// Package booking implements the availability checker and the status
// lifecycle manager for room bookings.  Both sit behind small store
// interfaces so the rules can be exercised without a live database, and
// both treat the store as the only shared mutable resource.
package booking

import (
	"context"
	"time"

	"github.com/iliyamo/room-booking/internal/model"
)

// Store is the read capability the availability checker needs.  The
// repository layer implements it against MySQL.
type Store interface {
	// ListActiveByRoom returns every booking for the room whose status is
	// in the active set (PENDING, APPROVED).  Order is not significant.
	ListActiveByRoom(ctx context.Context, roomID uint64) ([]model.Booking, error)
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.  Touching endpoints are adjacent, not
// overlapping.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return bStart.Before(aEnd) && bEnd.After(aStart)
}

// Checker decides whether a requested interval on a room is free of
// conflicting active bookings.
type Checker struct {
	store Store
}

// NewChecker returns a Checker bound to the given store.
func NewChecker(store Store) *Checker {
	if store == nil {
		panic("nil store passed to NewChecker")
	}
	return &Checker{store: store}
}

// IsRangeAvailable reports whether [start, end) on the room is free of
// active bookings.  The caller must guarantee start < end.  When the
// store cannot be read the checker fails closed: it returns false along
// with the error so the caller never books on unknown state.
func (c *Checker) IsRangeAvailable(ctx context.Context, roomID uint64, start, end time.Time) (bool, error) {
	conflicts, err := c.FindConflicts(ctx, roomID, start, end)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// FindConflicts returns the active bookings on the room that overlap the
// requested interval.  It is used for diagnostics and for 409 responses;
// an empty slice means the range is free.
func (c *Checker) FindConflicts(ctx context.Context, roomID uint64, start, end time.Time) ([]model.Booking, error) {
	active, err := c.store.ListActiveByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	conflicts := make([]model.Booking, 0)
	for _, b := range active {
		if Overlaps(start, end, b.StartsAt, b.EndsAt) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts, nil
}
