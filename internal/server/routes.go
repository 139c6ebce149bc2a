package server

import (
	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/internal/handlers"
)

func registerRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	budgetHandler *handlers.BudgetHandler,
	groupHandler *handlers.SpendingGroupHandler,
	settingsHandler *handlers.SettingsHandler,
	notificationHandler *handlers.NotificationHandler,
	authMiddleware echo.MiddlewareFunc,
	rateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", healthHandler.Health)

	api := e.Group("/api/v1", authMiddleware, rateLimiter)

	budgetGroup := api.Group("/budget")
	budgetGroup.GET("", budgetHandler.Summary)
	budgetGroup.GET("/export/csv", budgetHandler.ExportCSV)
	budgetGroup.GET("/categories/history", budgetHandler.CategoryHistory)
	budgetGroup.PUT("/categories/:category", budgetHandler.UpdateCategory)

	groups := api.Group("/spending-groups")
	groups.GET("", groupHandler.List)
	groups.POST("", groupHandler.Create)
	groups.DELETE("/:id", groupHandler.Delete)

	settings := api.Group("/settings")
	settings.GET("", settingsHandler.Get)
	settings.PUT("", settingsHandler.Update)

	notifications := api.Group("/notifications")
	notifications.GET("/stream", notificationHandler.Stream)
}
