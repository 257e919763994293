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

func TestComputeStatus(t *testing.T) {
	now := at(12, 0)
	cases := []struct {
		name   string
		status model.BookingStatus
		start  time.Time
		end    time.Time
		want   model.BookingStatus
	}{
		{"pending before window", model.BookingPending, at(13, 0), at(14, 0), model.BookingPending},
		{"pending ongoing", model.BookingPending, at(11, 55), at(12, 55), model.BookingApproved},
		{"pending starts exactly now", model.BookingPending, at(12, 0), at(13, 0), model.BookingApproved},
		{"pending fully elapsed", model.BookingPending, at(10, 0), at(11, 0), model.BookingExpired},
		{"approved ongoing", model.BookingApproved, at(11, 0), at(13, 0), model.BookingApproved},
		{"approved past", model.BookingApproved, at(10, 0), at(11, 59), model.BookingExpired},
		{"approved ends exactly now", model.BookingApproved, at(11, 0), at(12, 0), model.BookingExpired},
		{"cancelled past expires", model.BookingCancelled, at(10, 0), at(11, 0), model.BookingExpired},
		{"cancelled future stays", model.BookingCancelled, at(13, 0), at(14, 0), model.BookingCancelled},
		{"rejected is terminal", model.BookingRejected, at(10, 0), at(11, 0), model.BookingRejected},
		{"completed is terminal", model.BookingCompleted, at(10, 0), at(11, 0), model.BookingCompleted},
		{"expired stays expired", model.BookingExpired, at(10, 0), at(11, 0), model.BookingExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := model.Booking{Status: tc.status, StartsAt: tc.start, EndsAt: tc.end}
			assert.Equal(t, tc.want, ComputeStatus(b, now))
		})
	}
}

func newLifecycleAt(store *fakeStore, now time.Time) *Lifecycle {
	l := NewLifecycle(store)
	l.Now = func() time.Time { return now }
	return l
}

func TestPerformStatusCheck_ApprovesOngoingPending(t *testing.T) {
	now := at(12, 0)
	store := &fakeStore{bookings: []model.Booking{
		{ID: 1, Status: model.BookingPending, StartsAt: now.Add(-5 * time.Minute), EndsAt: now.Add(55 * time.Minute)},
	}}

	sum, err := newLifecycleAt(store, now).PerformStatusCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Approved: 1, Touched: 1}, sum)
	assert.Equal(t, model.BookingApproved, store.get(1).Status)
}

func TestPerformStatusCheck_ExpiresPastBookings(t *testing.T) {
	now := at(12, 0)
	store := &fakeStore{bookings: []model.Booking{
		// Approved booking that ended a minute ago.
		{ID: 1, Status: model.BookingApproved, StartsAt: at(10, 0), EndsAt: now.Add(-time.Minute)},
		// Cancelled is not terminal with respect to expiry.
		{ID: 2, Status: model.BookingCancelled, StartsAt: at(10, 0), EndsAt: at(11, 0)},
		// Rejected is terminal and must remain untouched.
		{ID: 3, Status: model.BookingRejected, StartsAt: at(10, 0), EndsAt: at(11, 0)},
		// Ending exactly at "now" expires under the half-open boundary.
		{ID: 4, Status: model.BookingApproved, StartsAt: at(11, 0), EndsAt: now},
	}}

	sum, err := newLifecycleAt(store, now).PerformStatusCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Expired: 3, Touched: 3}, sum)
	assert.Equal(t, model.BookingExpired, store.get(1).Status)
	assert.Equal(t, model.BookingExpired, store.get(2).Status)
	assert.Equal(t, model.BookingRejected, store.get(3).Status)
	assert.Equal(t, model.BookingExpired, store.get(4).Status)
}

func TestPerformStatusCheck_FullyElapsedPendingSkipsApproved(t *testing.T) {
	// The booking both started and ended between two checks: it must go
	// straight to EXPIRED and never pass through APPROVED.
	now := at(12, 0)
	store := &fakeStore{bookings: []model.Booking{
		{ID: 1, Status: model.BookingPending, StartsAt: at(10, 0), EndsAt: at(11, 0)},
	}}

	sum, err := newLifecycleAt(store, now).PerformStatusCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Expired: 1, Touched: 1}, sum)
	assert.Equal(t, model.BookingExpired, store.get(1).Status)
	assert.Equal(t, []uint64{1}, store.updates, "exactly one transition for the elapsed booking")
}

func TestPerformStatusCheck_Idempotent(t *testing.T) {
	now := at(12, 0)
	store := &fakeStore{bookings: []model.Booking{
		{ID: 1, Status: model.BookingPending, StartsAt: at(11, 0), EndsAt: at(13, 0)},
		{ID: 2, Status: model.BookingApproved, StartsAt: at(9, 0), EndsAt: at(10, 0)},
	}}
	l := newLifecycleAt(store, now)

	first, err := l.PerformStatusCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Touched)

	second, err := l.PerformStatusCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, second, "no further transitions when no time has passed")
}

func TestPerformStatusCheck_RowFailureDoesNotAbortBatch(t *testing.T) {
	now := at(12, 0)
	store := &fakeStore{
		bookings: []model.Booking{
			{ID: 1, Status: model.BookingApproved, StartsAt: at(9, 0), EndsAt: at(10, 0)},
			{ID: 2, Status: model.BookingApproved, StartsAt: at(9, 0), EndsAt: at(10, 0)},
			{ID: 3, Status: model.BookingApproved, StartsAt: at(9, 0), EndsAt: at(10, 0)},
		},
		updateErr: map[uint64]error{2: errors.New("lock wait timeout")},
	}

	sum, err := newLifecycleAt(store, now).PerformStatusCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Expired)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, model.BookingExpired, store.get(1).Status)
	assert.Equal(t, model.BookingApproved, store.get(2).Status)
	assert.Equal(t, model.BookingExpired, store.get(3).Status)
}

func TestPerformStatusCheck_ScanFailureAborts(t *testing.T) {
	store := &fakeStore{listErr: errors.New("connection refused")}

	_, err := newLifecycleAt(store, at(12, 0)).PerformStatusCheck(context.Background())
	assert.Error(t, err)
	assert.Empty(t, store.updates)
}
