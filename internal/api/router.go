package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/loaderhub/order-engine/internal/api/handler"
	"github.com/loaderhub/order-engine/internal/api/middleware"
	"github.com/loaderhub/order-engine/internal/core/ports"
	"github.com/loaderhub/order-engine/internal/core/service"
	"github.com/loaderhub/order-engine/pkg/logger"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// db and rdb may be nil when the in-memory backend is selected; they are only
// used by the readiness probe.
func NewRouter(engine ports.Engine, users ports.UserRepository, hub *service.Hub,
	db *mongo.Database, rdb *redis.Client) *echo.Echo {

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(logger.Get())

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("orderengine"))

	// --- Health probes and metrics (no identity required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Handlers ---
	userHandler := handler.NewUserHandler(engine)
	orderHandler := handler.NewOrderHandler(engine)
	feedHandler := handler.NewFeedHandler(hub)

	identity := middleware.Identity(users)
	dispatcherOnly := middleware.RBAC("dispatcher")
	loaderOnly := middleware.RBAC("loader")
	anyRole := middleware.RBAC("dispatcher", "loader")

	// --- Registration (no identity yet: this is how identities are made) ---
	e.POST("/v1/users", userHandler.Create)

	// --- Identified routes ---
	v1 := e.Group("/v1", identity)

	v1.GET("/users/me", userHandler.Me, anyRole)
	v1.GET("/users/:id", userHandler.Get, anyRole)

	v1.POST("/orders", orderHandler.Create, dispatcherOnly)
	v1.GET("/orders/available", orderHandler.Available, loaderOnly)
	v1.GET("/orders/mine", orderHandler.Mine, loaderOnly)
	v1.GET("/orders/posted", orderHandler.Posted, dispatcherOnly)
	v1.GET("/orders/:number", orderHandler.Get, anyRole)

	v1.POST("/orders/:number/take", orderHandler.Take, loaderOnly)
	v1.POST("/orders/:number/start", orderHandler.Start, loaderOnly)
	v1.POST("/orders/:number/complete", orderHandler.Complete, loaderOnly)
	v1.POST("/orders/:number/cancel", orderHandler.Cancel, anyRole)
	v1.POST("/orders/:number/rate", orderHandler.Rate, dispatcherOnly)

	v1.GET("/history", orderHandler.History, anyRole)
	v1.GET("/stats", orderHandler.Stats, anyRole)
	v1.GET("/feed", feedHandler.Stream, anyRole)

	return e
}
