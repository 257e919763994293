package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-booking/internal/booking"
	"github.com/iliyamo/room-booking/internal/config"
	"github.com/iliyamo/room-booking/internal/model"
	"github.com/iliyamo/room-booking/internal/queue"
	"github.com/iliyamo/room-booking/internal/repository"
	queue_publisher "github.com/iliyamo/room-booking/internal/service"
)

// bookingStore and roomStore are the repository capabilities the
// booking endpoints consume.  The narrow interfaces let tests drive the
// handlers with in-memory fakes; repository.BookingRepo and
// repository.RoomRepo implement them against MySQL.
type bookingStore interface {
	CreateIfAvailable(ctx context.Context, b *model.Booking) ([]model.Booking, error)
	UpdatePendingIfAvailable(ctx context.Context, id, userID uint64, title string, start, end time.Time) ([]model.Booking, error)
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	Cancel(ctx context.Context, id, userID uint64) error
}

type roomStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
}

// BookingHandler serves the booking endpoints for authenticated users.
// Every read path first runs a status check so callers never see
// statuses the clock has already invalidated, and every create/edit is
// guarded by the availability checker plus an in-transaction re-check.
type BookingHandler struct {
	Cfg       config.Config
	Bookings  bookingStore
	Rooms     roomStore
	Checker   *booking.Checker
	Lifecycle *booking.Lifecycle

	// Publish emits booking events; nil disables publication.  The
	// default dials RabbitMQ per call.
	Publish func(ctx context.Context, ev queue.BookingEvent) error
}

// NewBookingHandler constructs a BookingHandler; all dependencies must
// be non-nil.
func NewBookingHandler(cfg config.Config, bookings bookingStore, rooms roomStore, checker *booking.Checker, lifecycle *booking.Lifecycle) *BookingHandler {
	if bookings == nil || rooms == nil || checker == nil || lifecycle == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{
		Cfg:       cfg,
		Bookings:  bookings,
		Rooms:     rooms,
		Checker:   checker,
		Lifecycle: lifecycle,
		Publish:   queue_publisher.PublishBookingEvent,
	}
}

// normalizeStatuses runs the lifecycle check before a status-derived
// read.  Failures are logged and tolerated: stale statuses only make
// the response conservative, never wrong about availability, because
// an elapsed active booking cannot overlap a future interval.
func (h *BookingHandler) normalizeStatuses(ctx context.Context) {
	if _, err := h.Lifecycle.PerformStatusCheck(ctx); err != nil {
		log.Printf("booking: status check failed: %v", err)
	}
}

type createBookingReq struct {
	RoomID uint64 `json:"room_id"`
	Title  string `json:"title"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type quickBookingReq struct {
	RoomID      uint64 `json:"room_id"`
	Title       string `json:"title"`
	DurationMin int    `json:"duration_min"`
}

type editBookingReq struct {
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// bookingResp augments the stored (UTC) booking with its display-time
// rendering so clients in the fixed display timezone need no conversion.
type bookingResp struct {
	model.Booking
	StartsAtLocal string `json:"starts_at_local"`
	EndsAtLocal   string `json:"ends_at_local"`
}

func (h *BookingHandler) respBooking(b model.Booking) bookingResp {
	loc := h.Cfg.DisplayLocation()
	return bookingResp{
		Booking:       b,
		StartsAtLocal: b.StartsAt.In(loc).Format("2006-01-02 15:04"),
		EndsAtLocal:   b.EndsAt.In(loc).Format("2006-01-02 15:04"),
	}
}

func (h *BookingHandler) respBookings(bs []model.Booking) []bookingResp {
	out := make([]bookingResp, 0, len(bs))
	for _, b := range bs {
		out = append(out, h.respBooking(b))
	}
	return out
}

// parseRange parses and validates the requested interval.  A non-nil
// error message is ready for a 400 response.
func (h *BookingHandler) parseRange(startStr, endStr string, now time.Time) (time.Time, time.Time, string) {
	loc := h.Cfg.DisplayLocation()
	start, err := booking.ParseTime(startStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, "invalid start time"
	}
	end, err := booking.ParseTime(endStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, "invalid end time"
	}
	if err := booking.ValidateRange(start, end, now, h.Cfg.MaxBookingDuration()); err != nil {
		return time.Time{}, time.Time{}, err.Error()
	}
	return start, end, ""
}

// loadBookableRoom fetches the room and rejects bookings on inactive
// rooms.  Any error blocks the create path: ErrRoomNotFound when the
// room does not exist, ErrConflict when it is deactivated, and the
// store error otherwise so the caller fails closed.
func (h *BookingHandler) loadBookableRoom(ctx context.Context, roomID uint64) (*model.Room, error) {
	room, err := h.Rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, repository.ErrConflict
	}
	return room, nil
}

// roomGateError writes the HTTP response for a loadBookableRoom
// failure.
func (h *BookingHandler) roomGateError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrRoomNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "room is not accepting bookings"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

// createGuarded runs the availability pre-check and the atomic
// check-then-insert, writing the response in every branch.
func (h *BookingHandler) createGuarded(c echo.Context, ctx context.Context, b *model.Booking) error {
	// Pre-check for a friendly conflict answer.  A store failure here is
	// fatal to this decision: fail closed instead of booking blind.
	conflicts, err := h.Checker.FindConflicts(ctx, b.RoomID, b.StartsAt, b.EndsAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability check failed"})
	}
	if len(conflicts) > 0 {
		return c.JSON(http.StatusConflict, echo.Map{
			"available": false,
			"message":   "the requested time range is already booked",
			"conflicts": h.respBookings(conflicts),
		})
	}

	// Authoritative check inside the insert transaction.
	conflicts, err = h.Bookings.CreateIfAvailable(ctx, b)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
	}
	if len(conflicts) > 0 {
		return c.JSON(http.StatusConflict, echo.Map{
			"available": false,
			"message":   "the requested time range was taken concurrently",
			"conflicts": h.respBookings(conflicts),
		})
	}

	if h.Publish != nil {
		if err := h.Publish(ctx, queue.NewBookingEvent(queue.EventBookingCreated, *b)); err != nil {
			log.Printf("booking: publish created event failed: %v", err)
		}
	}
	return c.JSON(http.StatusCreated, h.respBooking(*b))
}

// Create handles POST /v1/bookings.  New bookings start PENDING.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil || req.RoomID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := booking.ValidateTitle(req.Title); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	now := time.Now().UTC()
	start, end, msg := h.parseRange(req.Start, req.End, now)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	h.normalizeStatuses(ctx)

	if _, err := h.loadBookableRoom(ctx, req.RoomID); err != nil {
		return h.roomGateError(c, err)
	}

	b := &model.Booking{
		RoomID:   req.RoomID,
		UserID:   userID,
		Title:    req.Title,
		StartsAt: start,
		EndsAt:   end,
		Status:   model.BookingPending,
	}
	return h.createGuarded(c, ctx, b)
}

// Quick handles POST /v1/bookings/quick: book a room starting now for a
// given number of minutes.  Quick bookings are created APPROVED since
// their window is already ongoing.
func (h *BookingHandler) Quick(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req quickBookingReq
	if err := c.Bind(&req); err != nil || req.RoomID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Title == "" {
		req.Title = "Quick booking"
	}
	if err := booking.ValidateTitle(req.Title); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.DurationMin <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_min must be positive"})
	}
	now := time.Now().UTC().Truncate(time.Minute)
	start := now
	end := start.Add(time.Duration(req.DurationMin) * time.Minute)
	if end.Sub(start) > h.Cfg.MaxBookingDuration() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": booking.ErrTooLong.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	h.normalizeStatuses(ctx)

	if _, err := h.loadBookableRoom(ctx, req.RoomID); err != nil {
		return h.roomGateError(c, err)
	}

	b := &model.Booking{
		RoomID:   req.RoomID,
		UserID:   userID,
		Title:    req.Title,
		StartsAt: start,
		EndsAt:   end,
		Status:   model.BookingApproved,
	}
	return h.createGuarded(c, ctx, b)
}

// List handles GET /v1/bookings and returns the caller's bookings.
func (h *BookingHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	h.normalizeStatuses(ctx)

	items, err := h.Bookings.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": h.respBookings(items)})
}

// Get handles GET /v1/bookings/:id.  Owners and administrators may
// read any booking; everyone else gets 403.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	h.normalizeStatuses(ctx)

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if b.UserID != userID && !hasRole(c, model.RoleAdmin) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, h.respBooking(*b))
}

// Edit handles PATCH /v1/bookings/:id.  Only the owner may edit, only
// while the booking is still PENDING, and the new range is re-checked
// for conflicts in the same transaction as the update.
func (h *BookingHandler) Edit(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req editBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := booking.ValidateTitle(req.Title); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	now := time.Now().UTC()
	start, end, msg := h.parseRange(req.Start, req.End, now)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	h.normalizeStatuses(ctx)

	conflicts, err := h.Bookings.UpdatePendingIfAvailable(ctx, id, userID, req.Title, start, end)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "only pending bookings can be edited"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update booking failed"})
	}
	if len(conflicts) > 0 {
		return c.JSON(http.StatusConflict, echo.Map{
			"available": false,
			"message":   "the requested time range is already booked",
			"conflicts": h.respBookings(conflicts),
		})
	}

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, h.respBooking(*b))
}

// Cancel handles POST /v1/bookings/:id/cancel.  Only the owner may
// cancel, and only from an active status.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	h.normalizeStatuses(ctx)

	if err := h.Bookings.Cancel(ctx, id, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not active"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel booking failed"})
	}

	b, err := h.Bookings.GetByID(ctx, id)
	if err == nil {
		if h.Publish != nil {
			if pubErr := h.Publish(ctx, queue.NewBookingEvent(queue.EventBookingCancelled, *b)); pubErr != nil {
				log.Printf("booking: publish cancelled event failed: %v", pubErr)
			}
		}
		return c.JSON(http.StatusOK, h.respBooking(*b))
	}
	return c.NoContent(http.StatusNoContent)
}

// hasRole reports whether the JWT role set stored in context contains
// the given role.
func hasRole(c echo.Context, role string) bool {
	held, ok := c.Get("roles").([]string)
	if !ok {
		return false
	}
	for _, r := range held {
		if r == role {
			return true
		}
	}
	return false
}
