package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/room-booking/internal/booking"
	"github.com/iliyamo/room-booking/internal/config"
	"github.com/iliyamo/room-booking/internal/model"
	"github.com/iliyamo/room-booking/internal/repository"
)

// Validation failures must be answered before any repository access, so
// a handler with nil dependencies is enough to exercise them: touching
// the store would panic and fail the test.
func validationHandler() *BookingHandler {
	return &BookingHandler{Cfg: config.Config{
		MaxBookingHours:    8,
		SlotGranularityMin: 30,
		DayStartHour:       8,
		DayEndHour:         18,
		DisplayTZOffsetMin: 7 * 60,
	}}
}

func postJSON(t *testing.T, path, body string, userID any) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != nil {
		c.Set("user_id", userID)
	}
	return c, rec
}

func TestCreateBooking_RejectsMissingUser(t *testing.T) {
	h := validationHandler()
	c, rec := postJSON(t, "/v1/bookings", `{}`, nil)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateBooking_RejectsMalformedBody(t *testing.T) {
	h := validationHandler()
	c, rec := postJSON(t, "/v1/bookings", `{not json`, uint64(1))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBooking_RejectsMissingRoom(t *testing.T) {
	h := validationHandler()
	c, rec := postJSON(t, "/v1/bookings", `{"title":"Standup","start":"2030-01-01T09:00","end":"2030-01-01T10:00"}`, uint64(1))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBooking_RejectsEmptyTitle(t *testing.T) {
	h := validationHandler()
	c, rec := postJSON(t, "/v1/bookings", `{"room_id":1,"title":"","start":"2030-01-01T09:00","end":"2030-01-01T10:00"}`, uint64(1))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBooking_RejectsInvertedRange(t *testing.T) {
	h := validationHandler()
	c, rec := postJSON(t, "/v1/bookings", `{"room_id":1,"title":"Standup","start":"2030-01-01T10:00","end":"2030-01-01T09:00"}`, uint64(1))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBooking_RejectsPastStart(t *testing.T) {
	h := validationHandler()
	c, rec := postJSON(t, "/v1/bookings", `{"room_id":1,"title":"Standup","start":"2020-01-01T09:00","end":"2020-01-01T10:00"}`, uint64(1))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBooking_RejectsOverlongRange(t *testing.T) {
	h := validationHandler()
	// Nine hours against the eight hour maximum.
	c, rec := postJSON(t, "/v1/bookings", `{"room_id":1,"title":"Offsite","start":"2030-01-01T08:00","end":"2030-01-01T17:00"}`, uint64(1))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBooking_RejectsUnparseableTimes(t *testing.T) {
	h := validationHandler()
	c, rec := postJSON(t, "/v1/bookings", `{"room_id":1,"title":"Standup","start":"tomorrow","end":"later"}`, uint64(1))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuickBooking_RejectsNonPositiveDuration(t *testing.T) {
	h := validationHandler()
	c, rec := postJSON(t, "/v1/bookings/quick", `{"room_id":1,"duration_min":0}`, uint64(1))

	require.NoError(t, h.Quick(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuickBooking_RejectsOverlongDuration(t *testing.T) {
	h := validationHandler()
	c, rec := postJSON(t, "/v1/bookings/quick", `{"room_id":1,"duration_min":600}`, uint64(1))

	require.NoError(t, h.Quick(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditBooking_RejectsBadID(t *testing.T) {
	h := validationHandler()
	c, rec := postJSON(t, "/v1/bookings/abc", `{"title":"x"}`, uint64(1))
	c.SetParamNames("id")
	c.SetParamValues("abc")

	require.NoError(t, h.Edit(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUserID_AcceptsJWTNumericTypes(t *testing.T) {
	for _, v := range []any{uint64(7), int(7), int64(7), float64(7), "7"} {
		c, _ := postJSON(t, "/", ``, v)
		id, err := getUserID(c)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), id)
	}

	c, _ := postJSON(t, "/", ``, nil)
	_, err := getUserID(c)
	assert.Error(t, err)
}

func TestHasRole(t *testing.T) {
	c, _ := postJSON(t, "/", ``, uint64(1))
	assert.False(t, hasRole(c, "ADMIN"))

	c.Set("roles", []string{"EMPLOYEE"})
	assert.False(t, hasRole(c, "ADMIN"))

	c.Set("roles", []string{"EMPLOYEE", "ADMIN"})
	assert.True(t, hasRole(c, "ADMIN"))
}

// fakeCoreStore backs the availability checker and the lifecycle
// manager in handler tests.
type fakeCoreStore struct {
	bookings []model.Booking
}

func (f *fakeCoreStore) ListActiveByRoom(_ context.Context, roomID uint64) ([]model.Booking, error) {
	out := make([]model.Booking, 0)
	for _, b := range f.bookings {
		if b.RoomID == roomID && b.Status.IsActive() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeCoreStore) ListApprovable(context.Context, time.Time) ([]model.Booking, error) {
	return nil, nil
}

func (f *fakeCoreStore) ListExpirable(context.Context, time.Time) ([]model.Booking, error) {
	return nil, nil
}

func (f *fakeCoreStore) UpdateStatus(context.Context, uint64, model.BookingStatus) error {
	return nil
}

type fakeRooms struct {
	rooms map[uint64]*model.Room
	err   error
}

func (f *fakeRooms) GetByID(_ context.Context, id uint64) (*model.Room, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return r, nil
}

// fakeBookings records inserts so tests can assert a rejected request
// never reached the store.
type fakeBookings struct {
	created []model.Booking
}

func (f *fakeBookings) CreateIfAvailable(_ context.Context, b *model.Booking) ([]model.Booking, error) {
	b.ID = uint64(len(f.created) + 1)
	f.created = append(f.created, *b)
	return nil, nil
}

func (f *fakeBookings) UpdatePendingIfAvailable(context.Context, uint64, uint64, string, time.Time, time.Time) ([]model.Booking, error) {
	return nil, repository.ErrBookingNotFound
}

func (f *fakeBookings) GetByID(context.Context, uint64) (*model.Booking, error) {
	return nil, repository.ErrBookingNotFound
}

func (f *fakeBookings) ListByUser(context.Context, uint64) ([]model.Booking, error) {
	return nil, nil
}

func (f *fakeBookings) Cancel(context.Context, uint64, uint64) error {
	return repository.ErrBookingNotFound
}

func gateHandler(rooms roomStore, core *fakeCoreStore) (*BookingHandler, *fakeBookings) {
	fb := &fakeBookings{}
	h := validationHandler()
	h.Bookings = fb
	h.Rooms = rooms
	h.Checker = booking.NewChecker(core)
	h.Lifecycle = booking.NewLifecycle(core)
	return h, fb
}

const createBody = `{"room_id":9,"title":"Standup","start":"2030-01-01T09:00","end":"2030-01-01T10:00"}`

func TestCreateBooking_MissingRoomBlocksInsert(t *testing.T) {
	h, fb := gateHandler(&fakeRooms{rooms: map[uint64]*model.Room{}}, &fakeCoreStore{})
	c, rec := postJSON(t, "/v1/bookings", createBody, uint64(1))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, fb.created, "no insert after 404")
}

func TestCreateBooking_InactiveRoomBlocksInsert(t *testing.T) {
	rooms := &fakeRooms{rooms: map[uint64]*model.Room{
		9: {ID: 9, Name: "Boardroom", Capacity: 8, IsActive: false},
	}}
	h, fb := gateHandler(rooms, &fakeCoreStore{})
	c, rec := postJSON(t, "/v1/bookings", createBody, uint64(1))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, fb.created, "deactivated rooms refuse new bookings")
}

func TestCreateBooking_RoomStoreErrorFailsClosed(t *testing.T) {
	h, fb := gateHandler(&fakeRooms{err: errors.New("connection refused")}, &fakeCoreStore{})
	c, rec := postJSON(t, "/v1/bookings", createBody, uint64(1))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, fb.created, "no insert on unknown room state")
}

func TestCreateBooking_ConflictBlocksInsert(t *testing.T) {
	rooms := &fakeRooms{rooms: map[uint64]*model.Room{
		9: {ID: 9, Name: "Boardroom", Capacity: 8, IsActive: true},
	}}
	// 09:00-10:00 display time is 02:00-03:00 UTC at the UTC+7 offset.
	existing, err := time.Parse(time.RFC3339, "2030-01-01T02:30:00Z")
	require.NoError(t, err)
	core := &fakeCoreStore{bookings: []model.Booking{{
		ID: 5, RoomID: 9, UserID: 2, Status: model.BookingApproved,
		StartsAt: existing, EndsAt: existing.Add(time.Hour),
	}}}
	h, fb := gateHandler(rooms, core)
	c, rec := postJSON(t, "/v1/bookings", createBody, uint64(1))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, fb.created)
}

func TestCreateBooking_ActiveRoomCreatesPending(t *testing.T) {
	rooms := &fakeRooms{rooms: map[uint64]*model.Room{
		9: {ID: 9, Name: "Boardroom", Capacity: 8, IsActive: true},
	}}
	h, fb := gateHandler(rooms, &fakeCoreStore{})
	c, rec := postJSON(t, "/v1/bookings", createBody, uint64(1))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, fb.created, 1)
	assert.Equal(t, model.BookingPending, fb.created[0].Status)
	assert.Equal(t, uint64(9), fb.created[0].RoomID)
}

func TestQuickBooking_InactiveRoomBlocksInsert(t *testing.T) {
	rooms := &fakeRooms{rooms: map[uint64]*model.Room{
		9: {ID: 9, Name: "Boardroom", Capacity: 8, IsActive: false},
	}}
	h, fb := gateHandler(rooms, &fakeCoreStore{})
	c, rec := postJSON(t, "/v1/bookings/quick", `{"room_id":9,"duration_min":30}`, uint64(1))

	require.NoError(t, h.Quick(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, fb.created)
}

func TestBookingRespUsesDisplayTimezone(t *testing.T) {
	h := validationHandler()
	start, err := time.Parse(time.RFC3339, "2026-03-10T02:00:00Z")
	require.NoError(t, err)
	resp := h.respBooking(model.Booking{StartsAt: start, EndsAt: start.Add(time.Hour)})

	// UTC+7 display offset.
	assert.Equal(t, "2026-03-10 09:00", resp.StartsAtLocal)
	assert.Equal(t, "2026-03-10 10:00", resp.EndsAtLocal)
}
