package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/viewtube/account-system/internal/api/handler"
	"github.com/viewtube/account-system/internal/api/middleware"
	"github.com/viewtube/account-system/internal/core/service"
	"github.com/viewtube/account-system/internal/infrastructure/config"
	mongodb "github.com/viewtube/account-system/internal/infrastructure/db/mongo"
	redisdb "github.com/viewtube/account-system/internal/infrastructure/db/redis"
	"github.com/viewtube/account-system/internal/infrastructure/storage"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, media *storage.MediaStore, cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("accounts"))

	// --- Dependencies ---
	userRepo := mongodb.NewUserRepository(db)
	profileRepo := mongodb.NewProfileRepository(db)
	profileCache := redisdb.NewProfileCache(rdb)

	tokenService := service.NewTokenService(userRepo, cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	accountService := service.NewAccountService(userRepo, tokenService, media, log)
	profileService := service.NewProfileService(profileRepo, userRepo, profileCache, log)

	accountHandler := handler.NewAccountHandler(accountService)
	profileHandler := handler.NewProfileHandler(profileService)

	auth := middleware.Auth(cfg.JWT.AccessSecret)
	optionalAuth := middleware.OptionalAuth(cfg.JWT.AccessSecret)

	// --- Account routes ---
	v1 := e.Group("/api/v1")

	users := v1.Group("/users")
	users.POST("/register", accountHandler.Register)
	users.POST("/login", accountHandler.Login)
	users.POST("/refresh-token", accountHandler.Refresh)
	users.POST("/logout", accountHandler.Logout, auth)
	users.POST("/change-password", accountHandler.ChangePassword, auth)
	users.GET("/current", accountHandler.Current, auth)
	users.PATCH("/update-account", accountHandler.UpdateAccount, auth)
	users.PATCH("/avatar", accountHandler.UpdateAvatar, auth)
	users.PATCH("/cover-image", accountHandler.UpdateCoverImage, auth)
	users.GET("/c/:username", profileHandler.Channel, optionalAuth)
	users.GET("/history", profileHandler.History, auth)

	subs := v1.Group("/subscriptions")
	subs.POST("/c/:channelId", profileHandler.ToggleSubscription, auth)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb, media)

	e.GET("/health", healthHandler.Liveness)          // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
