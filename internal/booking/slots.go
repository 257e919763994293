package booking

import (
	"context"
	"time"
)

// Slot is a fixed-duration subdivision of a day used to render a
// pickable availability grid.  Slots are presentation only: the final
// authority on a range stays with IsRangeAvailable at commit time.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// SlotConfig controls how a day is partitioned.  Hours are interpreted
// in Location, the display timezone; bookings are stored in UTC and the
// overlap tests convert at this edge.
type SlotConfig struct {
	Granularity  time.Duration
	DayStartHour int
	DayEndHour   int
	Location     *time.Location
}

// DaySlots partitions the calendar day containing date (in the display
// timezone) into fixed-size slots between DayStartHour and DayEndHour
// and flags each one via the same half-open overlap test the checker
// uses.  On a store failure it returns the error and no slots; callers
// must treat the day as unavailable rather than render an empty, fully
// free grid.
func (c *Checker) DaySlots(ctx context.Context, roomID uint64, date time.Time, cfg SlotConfig) ([]Slot, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	gran := cfg.Granularity
	if gran <= 0 {
		gran = 30 * time.Minute
	}

	local := date.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), cfg.DayStartHour, 0, 0, 0, loc)
	dayEnd := time.Date(local.Year(), local.Month(), local.Day(), cfg.DayEndHour, 0, 0, 0, loc)
	if !dayEnd.After(dayStart) {
		return []Slot{}, nil
	}

	active, err := c.store.ListActiveByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	slots := make([]Slot, 0, int(dayEnd.Sub(dayStart)/gran))
	for cur := dayStart; cur.Add(gran).Before(dayEnd) || cur.Add(gran).Equal(dayEnd); cur = cur.Add(gran) {
		s := Slot{Start: cur, End: cur.Add(gran), Available: true}
		for _, b := range active {
			if Overlaps(s.Start.UTC(), s.End.UTC(), b.StartsAt, b.EndsAt) {
				s.Available = false
				break
			}
		}
		slots = append(slots, s)
	}
	return slots, nil
}

// ParseTime parses a timestamp at the service boundary and returns it in
// UTC.  RFC 3339 values carry their own offset; bare local values
// ("2006-01-02T15:04") are interpreted in the display timezone before
// conversion, matching the storage contract of UTC at rest.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
