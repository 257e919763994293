package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-booking/internal/booking"
	"github.com/iliyamo/room-booking/internal/config"
	"github.com/iliyamo/room-booking/internal/repository"
)

// RoomHandler serves the public, read-only room endpoints: browsing,
// availability probes and the slot grid.
type RoomHandler struct {
	Cfg       config.Config
	Rooms     *repository.RoomRepo
	Checker   *booking.Checker
	Lifecycle *booking.Lifecycle
}

func NewRoomHandler(cfg config.Config, rooms *repository.RoomRepo, checker *booking.Checker, lifecycle *booking.Lifecycle) *RoomHandler {
	if rooms == nil || checker == nil || lifecycle == nil {
		panic("nil dependency passed to NewRoomHandler")
	}
	return &RoomHandler{Cfg: cfg, Rooms: rooms, Checker: checker, Lifecycle: lifecycle}
}

func (h *RoomHandler) normalizeStatuses(ctx context.Context) {
	if _, err := h.Lifecycle.PerformStatusCheck(ctx); err != nil {
		log.Printf("room: status check failed: %v", err)
	}
}

// Search handles GET /v1/rooms.  Supported query parameters:
// capacity, location, start, end (both or neither), page, page_size.
func (h *RoomHandler) Search(c echo.Context) error {
	q := repository.RoomSearchQuery{}

	if s := c.QueryParam("capacity"); s != "" {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid capacity"})
		}
		q.MinCapacity = uint32(n)
	}
	q.Location = c.QueryParam("location")

	startStr, endStr := c.QueryParam("start"), c.QueryParam("end")
	if (startStr == "") != (endStr == "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end must be provided together"})
	}
	if startStr != "" {
		loc := h.Cfg.DisplayLocation()
		start, err := booking.ParseTime(startStr, loc)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start time"})
		}
		end, err := booking.ParseTime(endStr, loc)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end time"})
		}
		if !start.Before(end) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be before end"})
		}
		q.AvailStart, q.AvailEnd = start, end
	}

	if s := c.QueryParam("page"); s != "" {
		q.Page, _ = strconv.Atoi(s)
	}
	if s := c.QueryParam("page_size"); s != "" {
		q.PageSize, _ = strconv.Atoi(s)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if !q.AvailStart.IsZero() {
		h.normalizeStatuses(ctx)
	}

	rooms, total, err := h.Rooms.Search(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rooms, "total": total})
}

// Get handles GET /v1/rooms/:id.
func (h *RoomHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	room, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, room)
}

// Availability handles GET /v1/rooms/:id/availability?start=...&end=...
// A store failure answers unavailable rather than guessing.
func (h *RoomHandler) Availability(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	loc := h.Cfg.DisplayLocation()
	start, err := booking.ParseTime(c.QueryParam("start"), loc)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start time"})
	}
	end, err := booking.ParseTime(c.QueryParam("end"), loc)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end time"})
	}
	if !start.Before(end) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be before end"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	h.normalizeStatuses(ctx)

	if _, err := h.Rooms.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	conflicts, err := h.Checker.FindConflicts(ctx, id, start, end)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"available": false,
			"error":     "availability check failed",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"available": len(conflicts) == 0,
		"conflicts": conflicts,
	})
}

// Slots handles GET /v1/rooms/:id/slots?date=YYYY-MM-DD and returns the
// bookable grid for that day in the display timezone.
func (h *RoomHandler) Slots(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	loc := h.Cfg.DisplayLocation()
	day, err := time.ParseInLocation("2006-01-02", c.QueryParam("date"), loc)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, expected YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	h.normalizeStatuses(ctx)

	if _, err := h.Rooms.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	cfg := booking.SlotConfig{
		Granularity:  time.Duration(h.Cfg.SlotGranularityMin) * time.Minute,
		DayStartHour: h.Cfg.DayStartHour,
		DayEndHour:   h.Cfg.DayEndHour,
		Location:     loc,
	}
	slots, err := h.Checker.DaySlots(ctx, id, day, cfg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability check failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"date": day.Format("2006-01-02"), "slots": slots})
}
