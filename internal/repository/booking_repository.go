package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/room-booking/internal/model"
)

// BookingRepo provides persistence for bookings.  All timestamps are
// stored in UTC; intervals are half-open [starts_at, ends_at).  It also
// implements the store interfaces the availability checker and the
// status lifecycle manager consume.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

const bookingCols = `id, room_id, user_id, title, starts_at, ends_at, status, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	if err := row.Scan(&b.ID, &b.RoomID, &b.UserID, &b.Title, &b.StartsAt, &b.EndsAt, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.StartsAt = b.StartsAt.UTC()
	b.EndsAt = b.EndsAt.UTC()
	return &b, nil
}

// CreateIfAvailable atomically re-checks the room for conflicting active
// bookings and inserts the new booking in one transaction.  The
// conflict query uses a locking read so two concurrent attempts on the
// same room serialize instead of both observing "available".  When
// conflicts exist the booking is not created and the conflicting rows
// are returned; an empty slice means the insert succeeded and b has
// been populated with the stored row.
func (r *BookingRepo) CreateIfAvailable(ctx context.Context, b *model.Booking) ([]model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const conflictQ = `SELECT ` + bookingCols + `
	                   FROM bookings
	                   WHERE room_id = ?
	                     AND status IN ('PENDING','APPROVED')
	                     AND starts_at < ? AND ends_at > ?
	                   FOR UPDATE`
	rows, err := tx.QueryContext(ctx, conflictQ, b.RoomID, b.EndsAt.UTC(), b.StartsAt.UTC())
	if err != nil {
		return nil, err
	}
	conflicts := make([]model.Booking, 0)
	for rows.Next() {
		cb, scanErr := scanBooking(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		conflicts = append(conflicts, *cb)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}

	const insQ = `INSERT INTO bookings (room_id, user_id, title, starts_at, ends_at, status) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, insQ, b.RoomID, b.UserID, b.Title, b.StartsAt.UTC(), b.EndsAt.UTC(), b.Status)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	b.ID = uint64(id)

	const sel = `SELECT ` + bookingCols + ` FROM bookings WHERE id = ?`
	got, err := scanBooking(tx.QueryRowContext(ctx, sel, b.ID))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	*b = *got
	return conflicts, nil
}

// UpdatePendingIfAvailable edits title and time range of a booking that
// is still PENDING and owned by userID, re-checking conflicts inside
// the same transaction.  The booking itself is excluded from the
// conflict scan.  Returns ErrBookingNotFound, ErrForbidden or
// ErrConflict (already left PENDING) as appropriate; a non-empty
// conflict slice means the time range was taken and nothing changed.
func (r *BookingRepo) UpdatePendingIfAvailable(ctx context.Context, id, userID uint64, title string, start, end time.Time) ([]model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const curQ = `SELECT user_id, status, room_id FROM bookings WHERE id = ? FOR UPDATE`
	var ownerID, roomID uint64
	var status model.BookingStatus
	if err := tx.QueryRowContext(ctx, curQ, id).Scan(&ownerID, &status, &roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if ownerID != userID {
		return nil, ErrForbidden
	}
	if status != model.BookingPending {
		return nil, ErrConflict
	}

	const conflictQ = `SELECT ` + bookingCols + `
	                   FROM bookings
	                   WHERE room_id = ? AND id <> ?
	                     AND status IN ('PENDING','APPROVED')
	                     AND starts_at < ? AND ends_at > ?
	                   FOR UPDATE`
	rows, err := tx.QueryContext(ctx, conflictQ, roomID, id, end.UTC(), start.UTC())
	if err != nil {
		return nil, err
	}
	conflicts := make([]model.Booking, 0)
	for rows.Next() {
		cb, scanErr := scanBooking(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		conflicts = append(conflicts, *cb)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}

	const updQ = `UPDATE bookings
	              SET title = ?, starts_at = ?, ends_at = ?, updated_at = CURRENT_TIMESTAMP
	              WHERE id = ?`
	if _, err := tx.ExecContext(ctx, updQ, title, start.UTC(), end.UTC(), id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return conflicts, nil
}

// GetByID retrieves a booking by its ID.  Returns ErrBookingNotFound
// when no row matches.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns all bookings created by the user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE user_id = ? ORDER BY starts_at DESC`
	return r.list(ctx, q, userID)
}

// ListByRoom returns all bookings on a room ordered by start time.
// Used by administrators for per-room overviews.
func (r *BookingRepo) ListByRoom(ctx context.Context, roomID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE room_id = ? ORDER BY starts_at ASC`
	return r.list(ctx, q, roomID)
}

// ListActiveByRoom returns the PENDING and APPROVED bookings for a room.
// This is the fetch behind every availability decision.
func (r *BookingRepo) ListActiveByRoom(ctx context.Context, roomID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingCols + `
	           FROM bookings
	           WHERE room_id = ? AND status IN ('PENDING','APPROVED')
	           ORDER BY starts_at ASC`
	return r.list(ctx, q, roomID)
}

// ListApprovable returns PENDING bookings whose window is ongoing at
// the given instant: starts_at <= now < ends_at.
func (r *BookingRepo) ListApprovable(ctx context.Context, now time.Time) ([]model.Booking, error) {
	const q = `SELECT ` + bookingCols + `
	           FROM bookings
	           WHERE status = 'PENDING' AND starts_at <= ? AND ends_at > ?
	           ORDER BY id ASC`
	return r.list(ctx, q, now.UTC(), now.UTC())
}

// ListExpirable returns PENDING, APPROVED and CANCELLED bookings whose
// window has passed: ends_at <= now.
func (r *BookingRepo) ListExpirable(ctx context.Context, now time.Time) ([]model.Booking, error) {
	const q = `SELECT ` + bookingCols + `
	           FROM bookings
	           WHERE status IN ('PENDING','APPROVED','CANCELLED') AND ends_at <= ?
	           ORDER BY id ASC`
	return r.list(ctx, q, now.UTC())
}

// UpdateStatus sets the status of a single booking unconditionally.
// The lifecycle manager calls this once per transition; each call is an
// independent best-effort row update.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error {
	const q = `UPDATE bookings SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// Cancel moves a booking owned by userID from an active status to
// CANCELLED.  When the guarded update matches no row the reason is
// resolved to ErrBookingNotFound, ErrForbidden or ErrConflict.
func (r *BookingRepo) Cancel(ctx context.Context, id, userID uint64) error {
	const q = `UPDATE bookings
	           SET status = 'CANCELLED', updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND user_id = ? AND status IN ('PENDING','APPROVED')`
	res, err := r.db.ExecContext(ctx, q, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return r.explainGuardMiss(ctx, id, userID)
}

// Transition moves a booking from one of the allowed statuses to the
// target status.  Administrators use it for REJECTED and COMPLETED.
func (r *BookingRepo) Transition(ctx context.Context, id uint64, from []model.BookingStatus, to model.BookingStatus) error {
	if len(from) == 0 {
		return ErrConflict
	}
	q := `UPDATE bookings SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status IN (`
	args := []any{to, id}
	for i, s := range from {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, s)
	}
	q += ")"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrConflict
}

func (r *BookingRepo) explainGuardMiss(ctx context.Context, id, userID uint64) error {
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return ErrForbidden
	}
	return ErrConflict
}
