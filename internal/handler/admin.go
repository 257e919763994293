package handler

import (
	"context"
	"database/sql"
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

// AdminHandler serves the management endpoints: room inventory, user
// roles and status, and the moderation transitions on bookings.
// Everything here sits behind the ADMIN role middleware.
type AdminHandler struct {
	Cfg       config.Config
	Rooms     *repository.RoomRepo
	Users     *repository.UserRepo
	Tokens    *repository.TokenRepo
	Bookings  *repository.BookingRepo
	Lifecycle *booking.Lifecycle
}

func NewAdminHandler(cfg config.Config, rooms *repository.RoomRepo, users *repository.UserRepo, tokens *repository.TokenRepo, bookings *repository.BookingRepo, lifecycle *booking.Lifecycle) *AdminHandler {
	if rooms == nil || users == nil || tokens == nil || bookings == nil || lifecycle == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Cfg: cfg, Rooms: rooms, Users: users, Tokens: tokens, Bookings: bookings, Lifecycle: lifecycle}
}

type roomReq struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Capacity    uint32 `json:"capacity"`
	Description string `json:"description"`
}

func (r roomReq) validate() string {
	if r.Name == "" {
		return "name is required"
	}
	if r.Capacity == 0 {
		return "capacity must be positive"
	}
	return ""
}

// CreateRoom handles POST /v1/admin/rooms.
func (h *AdminHandler) CreateRoom(c echo.Context) error {
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rm := &model.Room{
		Name:        req.Name,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Description: req.Description,
	}
	if err := h.Rooms.Create(ctx, rm); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create room failed"})
	}
	return c.JSON(http.StatusCreated, rm)
}

// UpdateRoom handles PUT /v1/admin/rooms/:id.
func (h *AdminHandler) UpdateRoom(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rm, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	rm.Name = req.Name
	rm.Location = req.Location
	rm.Capacity = req.Capacity
	rm.Description = req.Description
	if err := h.Rooms.Update(ctx, rm); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update room failed"})
	}
	return c.JSON(http.StatusOK, rm)
}

type activeReq struct {
	Active bool `json:"active"`
}

// SetRoomActive handles PATCH /v1/admin/rooms/:id/active.  Deactivated
// rooms disappear from search and refuse new bookings; existing
// bookings keep running until their status resolves.
func (h *AdminHandler) SetRoomActive(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	var req activeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Rooms.SetActive(ctx, id, req.Active); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update room failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "active": req.Active})
}

// RoomBookings handles GET /v1/admin/rooms/:id/bookings and returns the
// full booking history of a room.
func (h *AdminHandler) RoomBookings(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if _, err := h.Lifecycle.PerformStatusCheck(ctx); err != nil {
		log.Printf("admin: status check failed: %v", err)
	}

	if _, err := h.Rooms.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	items, err := h.Bookings.ListByRoom(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items})
}

// ListUsers handles GET /v1/admin/users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": users})
}

type roleReq struct {
	Role string `json:"role"`
}

// GrantRole handles POST /v1/admin/users/:id/roles.
func (h *AdminHandler) GrantRole(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil || req.Role == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.GrantRole(ctx, id, req.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown role"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant role failed"})
	}
	roles, err := h.Users.RolesOf(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": id, "roles": roles})
}

// RevokeRole handles DELETE /v1/admin/users/:id/roles/:role.  Revoking a
// role the user does not hold is a no-op.
func (h *AdminHandler) RevokeRole(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	role := c.Param("role")
	if role == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.RevokeRole(ctx, id, role); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke role failed"})
	}
	roles, err := h.Users.RolesOf(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": id, "roles": roles})
}

// SetUserActive handles PATCH /v1/admin/users/:id/active.  Deactivating
// a user also revokes every refresh token so the account is locked out
// as soon as the current access token expires.
func (h *AdminHandler) SetUserActive(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req activeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SetActive(ctx, id, req.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
	}
	if !req.Active {
		if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
			log.Printf("admin: revoke tokens for user %d failed: %v", id, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "active": req.Active})
}

// transitionBooking backs the reject and complete endpoints.
func (h *AdminHandler) transitionBooking(c echo.Context, from []model.BookingStatus, to model.BookingStatus, event string) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if _, err := h.Lifecycle.PerformStatusCheck(ctx); err != nil {
		log.Printf("admin: status check failed: %v", err)
	}

	if err := h.Bookings.Transition(ctx, id, from, to); err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not in a transitionable status"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update booking failed"})
	}

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if pubErr := queue_publisher.PublishBookingEvent(ctx, queue.NewBookingEvent(event, *b)); pubErr != nil {
		log.Printf("admin: publish %s event failed: %v", event, pubErr)
	}
	return c.JSON(http.StatusOK, b)
}

// RejectBooking handles POST /v1/admin/bookings/:id/reject.  Both
// pending and approved bookings can be rejected; rejection frees the
// time range immediately.
func (h *AdminHandler) RejectBooking(c echo.Context) error {
	return h.transitionBooking(c, model.ActiveStatuses,
		model.BookingRejected, queue.EventBookingRejected)
}

// CompleteBooking handles POST /v1/admin/bookings/:id/complete and ends
// an approved booking early, freeing the remainder of its window.
func (h *AdminHandler) CompleteBooking(c echo.Context) error {
	return h.transitionBooking(c,
		[]model.BookingStatus{model.BookingApproved},
		model.BookingCompleted, queue.EventBookingCompleted)
}

// StatusCheck handles POST /v1/admin/status-check and runs one explicit
// lifecycle pass, returning what it touched.
func (h *AdminHandler) StatusCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	sum, err := h.Lifecycle.PerformStatusCheck(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "status check failed", "summary": sum})
	}
	return c.JSON(http.StatusOK, sum)
}
