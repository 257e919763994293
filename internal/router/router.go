// Package router registers the HTTP routes for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-booking/internal/handler"
	"github.com/iliyamo/room-booking/internal/middleware"
	"github.com/iliyamo/room-booking/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently only the health check used by load balancers and monitors.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes.  Unauthenticated
// operations live under /v1/auth; token-protected session endpoints sit
// behind the JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token; refresh-access issues a new
	// access token without rotation.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout takes the refresh token in the body, so no JWT is needed.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/auth/logout-all", a.LogoutAll)
}

// RegisterRooms registers the public, read-only room endpoints: search,
// details, availability probe and the daily slot grid.  Guests can
// browse without a token; booking requires authentication.
func RegisterRooms(e *echo.Echo, r *handler.RoomHandler, mws ...echo.MiddlewareFunc) {
	g := e.Group("/v1/rooms", mws...)
	g.GET("", r.Search)
	g.GET("/:id", r.Get)
	g.GET("/:id/availability", r.Availability)
	g.GET("/:id/slots", r.Slots)
}

// RegisterBookings registers the booking endpoints for authenticated
// employees.  Every route requires a valid access token carrying the
// EMPLOYEE or ADMIN role.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleEmployee, model.RoleAdmin))
	g.POST("", b.Create)
	g.POST("/quick", b.Quick)
	g.GET("", b.List)
	g.GET("/:id", b.Get)
	g.PATCH("/:id", b.Edit)
	g.POST("/:id/cancel", b.Cancel)
}

// RegisterAdmin registers the management endpoints behind the ADMIN
// role: room inventory, user administration, booking moderation and the
// manual status check trigger.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin))

	g.POST("/rooms", a.CreateRoom)
	g.PUT("/rooms/:id", a.UpdateRoom)
	g.PATCH("/rooms/:id/active", a.SetRoomActive)
	g.GET("/rooms/:id/bookings", a.RoomBookings)

	g.GET("/users", a.ListUsers)
	g.POST("/users/:id/roles", a.GrantRole)
	g.DELETE("/users/:id/roles/:role", a.RevokeRole)
	g.PATCH("/users/:id/active", a.SetUserActive)

	g.POST("/bookings/:id/reject", a.RejectBooking)
	g.POST("/bookings/:id/complete", a.CompleteBooking)
	g.POST("/status-check", a.StatusCheck)
}
