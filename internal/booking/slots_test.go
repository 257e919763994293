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

var bangkok = time.FixedZone("UTC+7", 7*3600)

func defaultSlotConfig() SlotConfig {
	return SlotConfig{
		Granularity:  30 * time.Minute,
		DayStartHour: 8,
		DayEndHour:   18,
		Location:     bangkok,
	}
}

func TestDaySlots_GridShape(t *testing.T) {
	c := NewChecker(&fakeStore{})

	slots, err := c.DaySlots(context.Background(), 7, at(0, 0), defaultSlotConfig())
	require.NoError(t, err)
	// 08:00-18:00 at 30 minutes is 20 slots.
	require.Len(t, slots, 20)
	assert.Equal(t, 8, slots[0].Start.In(bangkok).Hour())
	assert.Equal(t, 18, slots[19].End.In(bangkok).Hour())
	for _, s := range slots {
		assert.True(t, s.Available)
		assert.Equal(t, 30*time.Minute, s.End.Sub(s.Start))
	}
}

func TestDaySlots_MarksBookedSlots(t *testing.T) {
	// 09:00-10:00 local (UTC+7) is 02:00-03:00 UTC at rest.
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, bangkok)
	store := &fakeStore{bookings: []model.Booking{
		{ID: 1, RoomID: 7, Status: model.BookingApproved,
			StartsAt: time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC),
			EndsAt:   time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)},
	}}
	c := NewChecker(store)

	slots, err := c.DaySlots(context.Background(), 7, day, defaultSlotConfig())
	require.NoError(t, err)
	require.Len(t, slots, 20)

	for _, s := range slots {
		h, m := s.Start.In(bangkok).Hour(), s.Start.In(bangkok).Minute()
		booked := (h == 9 && m == 0) || (h == 9 && m == 30)
		assert.Equal(t, !booked, s.Available, "slot %02d:%02d", h, m)
	}
}

func TestDaySlots_StoreErrorPropagates(t *testing.T) {
	c := NewChecker(&fakeStore{listErr: errors.New("connection refused")})

	slots, err := c.DaySlots(context.Background(), 7, at(0, 0), defaultSlotConfig())
	assert.Error(t, err)
	assert.Nil(t, slots)
}

func TestParseTime(t *testing.T) {
	// RFC 3339 input keeps its own offset.
	got, err := ParseTime("2026-03-10T09:00:00+07:00", bangkok)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC), got)

	// Bare local input is interpreted in the display timezone.
	got, err = ParseTime("2026-03-10T09:00", bangkok)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC), got)

	_, err = ParseTime("10/03/2026 09:00", bangkok)
	assert.Error(t, err)
}

func TestValidateRange(t *testing.T) {
	now := at(12, 0)
	max := 8 * time.Hour

	assert.NoError(t, ValidateRange(at(13, 0), at(14, 0), now, max))
	assert.ErrorIs(t, ValidateRange(at(14, 0), at(13, 0), now, max), ErrInvalidRange)
	assert.ErrorIs(t, ValidateRange(at(13, 0), at(13, 0), now, max), ErrInvalidRange)
	assert.ErrorIs(t, ValidateRange(at(11, 0), at(13, 0), now, max), ErrStartInPast)
	assert.ErrorIs(t, ValidateRange(at(13, 0), at(22, 0), now, max), ErrTooLong)
	// Exactly the maximum is allowed.
	assert.NoError(t, ValidateRange(at(13, 0), at(21, 0), now, max))
}

func TestValidateTitle(t *testing.T) {
	assert.NoError(t, ValidateTitle("Weekly sync"))
	assert.ErrorIs(t, ValidateTitle(""), ErrEmptyTitle)

	long := make([]rune, MaxTitleLen+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.ErrorIs(t, ValidateTitle(string(long)), ErrTitleTooLong)
}
