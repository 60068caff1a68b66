package http

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	custommiddleware "libraquant/internal/middleware"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	Sessions     custommiddleware.SessionValidator
	AuthHandler  *AuthHandler
	UserHandler  *UserHandler
	AdminHandler *AdminHandler
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	// Middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Status is polled by every open screen
			path := c.Request().URL.Path
			return path == "/health" || strings.HasSuffix(path, "/api/user/status")
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return SuccessResponse(c, map[string]interface{}{
			"status":    "healthy",
			"service":   "libraquant-api",
			"timestamp": time.Now().UTC(),
		})
	})

	// API group
	api := e.Group("/api")
	requireSession := custommiddleware.AuthMiddleware(config.Sessions)

	// Auth routes
	auth := api.Group("/auth")
	{
		auth.POST("/login", config.AuthHandler.Login)
		auth.POST("/logout", config.AuthHandler.Logout)
		auth.GET("/session", config.AuthHandler.GetSession, requireSession)
	}

	// User routes (protected with AuthMiddleware)
	user := api.Group("/user", requireSession)
	{
		user.GET("/snapshot", config.UserHandler.GetSnapshot)
		user.GET("/status", config.UserHandler.GetStatus)
		user.POST("/sync", config.UserHandler.Sync)
		user.GET("/stats", config.UserHandler.GetStats)
		user.GET("/signals/:id/analysis", config.UserHandler.AnalyzeSignal)
		user.GET("/alerts", config.UserHandler.GetAlerts)
		user.GET("/preferences/sound", config.UserHandler.GetSoundPreference)
		user.PUT("/preferences/sound", config.UserHandler.SetSoundPreference)
	}

	// Admin routes (protected with Auth + Admin middleware)
	admin := api.Group("/admin", requireSession, custommiddleware.AdminMiddleware)
	{
		admin.POST("/signals", config.AdminHandler.CreateSignal)
		admin.PUT("/signals/:id", config.AdminHandler.UpdateSignal)
		admin.DELETE("/signals/:id", config.AdminHandler.DeleteSignal)
		admin.POST("/watchlist", config.AdminHandler.CreateWatchItem)
		admin.DELETE("/watchlist/:symbol", config.AdminHandler.DeleteWatchItem)
		admin.GET("/users", config.AdminHandler.GetUsers)
		admin.PUT("/users/:id", config.AdminHandler.UpdateUser)
		admin.DELETE("/users/:id", config.AdminHandler.DeleteUser)
		admin.DELETE("/devices/:phone", config.AdminHandler.ResetDevice)
	}
}
