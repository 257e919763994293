package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/room-booking/internal/model"
)

// RoomRepo provides persistence for meeting rooms.  Rooms are
// read-mostly; administrators create and edit them, everyone else only
// browses.  Deactivation is the delete operation: rooms referenced by
// bookings are never removed.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

const roomCols = `id, name, location, capacity, description, is_active, created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }) (*model.Room, error) {
	var rm model.Room
	var desc sql.NullString
	if err := row.Scan(&rm.ID, &rm.Name, &rm.Location, &rm.Capacity, &desc, &rm.IsActive, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		rm.Description = desc.String
	}
	return &rm, nil
}

// Create inserts a new room and reads the row back so DB defaults
// (is_active, timestamps) are populated on the struct.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	const q = `INSERT INTO rooms (name, location, capacity, description) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rm.Name, rm.Location, rm.Capacity, rm.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rm.ID = uint64(id)

	const sel = `SELECT ` + roomCols + ` FROM rooms WHERE id = ?`
	got, err := scanRoom(r.db.QueryRowContext(ctx, sel, rm.ID))
	if err != nil {
		return err
	}
	*rm = *got
	return nil
}

// GetByID retrieves a room by its ID.  It returns ErrRoomNotFound when
// no row matches.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE id = ?`
	rm, err := scanRoom(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return rm, nil
}

// Update rewrites the editable room fields.  Returns ErrRoomNotFound
// when the room does not exist.
func (r *RoomRepo) Update(ctx context.Context, rm *model.Room) error {
	const q = `UPDATE rooms
	           SET name = ?, location = ?, capacity = ?, description = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, rm.Name, rm.Location, rm.Capacity, rm.Description, rm.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// SetActive flips the is_active flag.  Deactivated rooms are hidden
// from search and refuse new bookings; existing bookings stay intact.
func (r *RoomRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	const q = `UPDATE rooms SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// RoomSearchQuery defines the filters for browsing rooms.  When
// AvailStart/AvailEnd are both set, rooms with an active booking
// overlapping that window are excluded from the result.
type RoomSearchQuery struct {
	MinCapacity uint32
	Location    string
	AvailStart  time.Time
	AvailEnd    time.Time
	Page        int
	PageSize    int
}

// Search returns active rooms matching the filters plus the total count
// for pagination.  The availability filter is a coarse pre-filter for
// browsing; the authoritative check at booking time stays with the
// availability checker.
func (r *RoomRepo) Search(ctx context.Context, q RoomSearchQuery) ([]model.Room, int64, error) {
	where := []string{"r.is_active = 1"}
	args := []any{}

	if q.MinCapacity > 0 {
		where = append(where, "r.capacity >= ?")
		args = append(args, q.MinCapacity)
	}
	if q.Location != "" {
		where = append(where, "LOWER(r.location) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Location)+"%")
	}
	if !q.AvailStart.IsZero() && !q.AvailEnd.IsZero() {
		// Half-open overlap test against active bookings, mirrored from
		// the availability checker.
		where = append(where, `NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.room_id = r.id
			  AND b.status IN ('PENDING','APPROVED')
			  AND b.starts_at < ? AND b.ends_at > ?)`)
		args = append(args, q.AvailEnd.UTC(), q.AvailStart.UTC())
	}

	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*) FROM rooms r WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	if limit < 1 {
		limit = 20
	}
	offset := 0
	if q.Page > 1 {
		offset = (q.Page - 1) * limit
	}

	dataSQL := `SELECT r.id, r.name, r.location, r.capacity, r.description, r.is_active, r.created_at, r.updated_at
	            FROM rooms r
	            WHERE ` + cond + `
	            ORDER BY r.capacity ASC, r.id ASC
	            LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Room, 0, limit)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rm)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
