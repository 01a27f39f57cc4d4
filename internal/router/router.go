package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/room-reservation/internal/config"
	"github.com/iliyamo/room-reservation/internal/handler"
	"github.com/iliyamo/room-reservation/internal/middleware"
	"github.com/iliyamo/room-reservation/internal/model"
)

// Handlers groups everything the route table dispatches to.
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Rooms        *handler.RoomHandler
	Reservations *handler.ReservationHandler
	Admin        *handler.AdminHandler
}

// Options carries the cross-cutting pieces of the route table.  A nil
// Redis client disables rate limiting and response caching.
type Options struct {
	JWTSecret string
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       *logrus.Entry
}

// Register mounts every route on e.
func Register(e *echo.Echo, h Handlers, o Options) {
	if o.Log == nil {
		o.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	RegisterRoutes(e, h.Health)

	limit := middleware.NewTokenBucket(o.RateLimit, o.Redis, o.Log)
	invalidate := middleware.InvalidateCache(o.Cache, o.Redis, o.Log)
	cache := middleware.NewRedisCache(o.Cache, o.Redis, o.Log)

	RegisterAuth(e, h.Auth, o.JWTSecret, limit)

	// Everything below needs a session.  Role gates are coarse; the
	// services decide ownership.
	auth := e.Group("/v1", middleware.JWTAuth(o.JWTSecret), limit)

	rooms := auth.Group("/rooms")
	rooms.GET("", h.Rooms.ListRooms, cache)
	rooms.POST("", h.Rooms.CreateRoom,
		middleware.RequireRole(model.RoleOwner, model.RoleAdmin), invalidate)
	rooms.PATCH("/:id", h.Rooms.UpdateRoom,
		middleware.RequireRole(model.RoleOwner, model.RoleAdmin), invalidate)
	rooms.GET("/:id/reservations", h.Rooms.RoomReservations,
		middleware.RequireRole(model.RoleOwner, model.RoleAdmin))

	// Bookings change availability, so they invalidate the listing cache too.
	res := auth.Group("/reservations")
	res.POST("", h.Reservations.CreateReservation,
		middleware.RequireRole(model.RoleGuest, model.RoleAdmin), invalidate)
	res.PATCH("/:id/cancel", h.Reservations.CancelReservation, invalidate)
	res.GET("/me", h.Reservations.MyReservations, middleware.RequireRole(model.RoleGuest))

	admin := auth.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users", h.Admin.Users)
	admin.GET("/rooms", h.Admin.Rooms)
	admin.GET("/reservations", h.Admin.Reservations)
}

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Healthz)
	e.GET("/health", h.Health)
}

// RegisterAuth registers the session endpoints.  Register, login and
// refresh need no token; logout accepts either a refresh token in the
// body or an access token in the header.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}
