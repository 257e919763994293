package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/room-booking/internal/model"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{"identical", at(9, 0), at(10, 0), at(9, 0), at(10, 0), true},
		{"contained", at(9, 0), at(10, 0), at(9, 15), at(9, 45), true},
		{"partial front", at(9, 30), at(10, 30), at(9, 0), at(10, 0), true},
		{"partial back", at(8, 30), at(9, 30), at(9, 0), at(10, 0), true},
		{"touching end-to-start", at(10, 0), at(11, 0), at(9, 0), at(10, 0), false},
		{"touching start-to-end", at(8, 0), at(9, 0), at(9, 0), at(10, 0), false},
		{"disjoint", at(11, 0), at(12, 0), at(9, 0), at(10, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
		})
	}
}

func TestIsRangeAvailable_AdjacentBooking(t *testing.T) {
	store := &fakeStore{bookings: []model.Booking{
		{ID: 1, RoomID: 7, Status: model.BookingApproved, StartsAt: at(9, 0), EndsAt: at(10, 0)},
	}}
	c := NewChecker(store)

	// Request 10:00-11:00 against an approved 09:00-10:00: free.
	ok, err := c.IsRangeAvailable(context.Background(), 7, at(10, 0), at(11, 0))
	require.NoError(t, err)
	assert.True(t, ok)

	// A booking ending exactly when the request starts does not conflict
	// either way round.
	ok, err = c.IsRangeAvailable(context.Background(), 7, at(8, 0), at(9, 0))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsRangeAvailable_Conflict(t *testing.T) {
	existing := model.Booking{ID: 1, RoomID: 7, Status: model.BookingApproved, StartsAt: at(9, 0), EndsAt: at(10, 0)}
	store := &fakeStore{bookings: []model.Booking{existing}}
	c := NewChecker(store)

	ok, err := c.IsRangeAvailable(context.Background(), 7, at(9, 30), at(10, 30))
	require.NoError(t, err)
	assert.False(t, ok)

	conflicts, err := c.FindConflicts(context.Background(), 7, at(9, 30), at(10, 30))
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, existing.ID, conflicts[0].ID)
}

func TestFindConflicts_OnlyActiveStatusesBlock(t *testing.T) {
	store := &fakeStore{bookings: []model.Booking{
		{ID: 1, RoomID: 7, Status: model.BookingPending, StartsAt: at(9, 0), EndsAt: at(10, 0)},
		{ID: 2, RoomID: 7, Status: model.BookingApproved, StartsAt: at(9, 30), EndsAt: at(10, 30)},
		{ID: 3, RoomID: 7, Status: model.BookingCancelled, StartsAt: at(9, 0), EndsAt: at(10, 0)},
		{ID: 4, RoomID: 7, Status: model.BookingRejected, StartsAt: at(9, 0), EndsAt: at(10, 0)},
		{ID: 5, RoomID: 7, Status: model.BookingExpired, StartsAt: at(9, 0), EndsAt: at(10, 0)},
		{ID: 6, RoomID: 7, Status: model.BookingCompleted, StartsAt: at(9, 0), EndsAt: at(10, 0)},
		{ID: 7, RoomID: 8, Status: model.BookingApproved, StartsAt: at(9, 0), EndsAt: at(10, 0)},
	}}
	c := NewChecker(store)

	conflicts, err := c.FindConflicts(context.Background(), 7, at(9, 0), at(10, 0))
	require.NoError(t, err)
	require.Len(t, conflicts, 2)

	// Every reported conflict must individually satisfy the half-open
	// overlap test against the query interval.
	for _, b := range conflicts {
		assert.True(t, b.StartsAt.Before(at(10, 0)))
		assert.True(t, b.EndsAt.After(at(9, 0)))
		assert.True(t, b.Status.IsActive())
	}
}

func TestIsRangeAvailable_StoreErrorFailsClosed(t *testing.T) {
	store := &fakeStore{listErr: errors.New("connection refused")}
	c := NewChecker(store)

	ok, err := c.IsRangeAvailable(context.Background(), 7, at(9, 0), at(10, 0))
	assert.Error(t, err)
	assert.False(t, ok, "availability must be denied when the store cannot be read")
}
