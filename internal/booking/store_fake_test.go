package booking

import (
	"context"
	"time"

	"github.com/iliyamo/room-booking/internal/model"
)

// fakeStore is an in-memory stand-in for the SQL repository.  Its list
// methods apply the same predicates the repository queries use, and
// UpdateStatus mutates state so repeated lifecycle runs observe their
// own effects.
type fakeStore struct {
	bookings  []model.Booking
	listErr   error
	updateErr map[uint64]error
	updates   []uint64
}

func (f *fakeStore) ListActiveByRoom(_ context.Context, roomID uint64) ([]model.Booking, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Booking, 0)
	for _, b := range f.bookings {
		if b.RoomID == roomID && b.Status.IsActive() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) ListApprovable(_ context.Context, now time.Time) ([]model.Booking, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Booking, 0)
	for _, b := range f.bookings {
		if b.Status == model.BookingPending && !b.StartsAt.After(now) && b.EndsAt.After(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) ListExpirable(_ context.Context, now time.Time) ([]model.Booking, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Booking, 0)
	for _, b := range f.bookings {
		switch b.Status {
		case model.BookingPending, model.BookingApproved, model.BookingCancelled:
			if !b.EndsAt.After(now) {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uint64, status model.BookingStatus) error {
	if err := f.updateErr[id]; err != nil {
		return err
	}
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			f.bookings[i].Status = status
		}
	}
	f.updates = append(f.updates, id)
	return nil
}

func (f *fakeStore) get(id uint64) model.Booking {
	for _, b := range f.bookings {
		if b.ID == id {
			return b
		}
	}
	return model.Booking{}
}
