package booking

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/room-booking/internal/model"
)

// LifecycleStore is the access pattern the status lifecycle manager
// requires.  The two list methods mirror the two scan steps of a status
// check; UpdateStatus is a single best-effort row update.
type LifecycleStore interface {
	// ListApprovable returns PENDING bookings with starts_at <= now < ends_at.
	ListApprovable(ctx context.Context, now time.Time) ([]model.Booking, error)
	// ListExpirable returns PENDING, APPROVED and CANCELLED bookings with
	// ends_at <= now.
	ListExpirable(ctx context.Context, now time.Time) ([]model.Booking, error)
	// UpdateStatus sets the status of a single booking.
	UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error
}

// ComputeStatus returns the status a booking should have at the given
// instant.  It is a pure function of the booking and the clock: expiry
// fires at ends_at <= now (half-open on the end side), approval requires
// the window to still be ongoing, and terminal statuses are never
// changed.  A PENDING booking whose window has fully elapsed goes
// straight to EXPIRED without ever being APPROVED.
func ComputeStatus(b model.Booking, now time.Time) model.BookingStatus {
	if b.Status.IsTerminal() {
		return b.Status
	}
	if !b.EndsAt.After(now) {
		switch b.Status {
		case model.BookingPending, model.BookingApproved, model.BookingCancelled:
			return model.BookingExpired
		}
		return b.Status
	}
	if b.Status == model.BookingPending && !b.StartsAt.After(now) {
		return model.BookingApproved
	}
	return b.Status
}

// Summary reports what a single status check did.  Touched counts the
// rows successfully updated; Failed counts per-row update errors, which
// never abort the batch.
type Summary struct {
	Approved int `json:"approved"`
	Expired  int `json:"expired"`
	Touched  int `json:"touched"`
	Failed   int `json:"failed"`
}

// Lifecycle transitions bookings between statuses based on wall-clock
// time.  There is no external scheduler dependency: callers invoke
// PerformStatusCheck before relying on status-derived data, and a timer
// may re-invoke it periodically.  Runs are idempotent, so overlapping
// invocations only cause redundant work.
type Lifecycle struct {
	store LifecycleStore

	// Now supplies the clock and defaults to time.Now in UTC.  Tests
	// override it to pin the instant a check observes.
	Now func() time.Time
}

// NewLifecycle returns a Lifecycle bound to the given store.
func NewLifecycle(store LifecycleStore) *Lifecycle {
	if store == nil {
		panic("nil store passed to NewLifecycle")
	}
	return &Lifecycle{
		store: store,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// PerformStatusCheck scans the store and normalizes booking statuses
// against the current clock.  Step 1 approves PENDING bookings whose
// window is ongoing; step 2 expires active and cancelled bookings whose
// window has passed.  The order matters: a booking that both started and
// ended since the previous check is picked up by step 2 only and skips
// APPROVED entirely.  A failure to read either scan aborts the check;
// individual update failures are logged and counted but do not stop the
// remaining rows.
func (l *Lifecycle) PerformStatusCheck(ctx context.Context) (Summary, error) {
	now := l.Now()
	var sum Summary

	approvable, err := l.store.ListApprovable(ctx, now)
	if err != nil {
		return sum, err
	}
	for _, b := range approvable {
		// Re-derive the target status so a row listed at the boundary is
		// never approved after its window closed.
		if ComputeStatus(b, now) != model.BookingApproved {
			continue
		}
		if err := l.store.UpdateStatus(ctx, b.ID, model.BookingApproved); err != nil {
			log.Printf("lifecycle: approve booking %d failed: %v", b.ID, err)
			sum.Failed++
			continue
		}
		sum.Approved++
	}

	expirable, err := l.store.ListExpirable(ctx, now)
	if err != nil {
		return sum, err
	}
	for _, b := range expirable {
		if ComputeStatus(b, now) != model.BookingExpired {
			continue
		}
		if err := l.store.UpdateStatus(ctx, b.ID, model.BookingExpired); err != nil {
			log.Printf("lifecycle: expire booking %d failed: %v", b.ID, err)
			sum.Failed++
			continue
		}
		sum.Expired++
	}

	sum.Touched = sum.Approved + sum.Expired
	return sum, nil
}
