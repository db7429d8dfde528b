package api

import (
	"github.com/gin-gonic/gin"

	"github.com/welltrack/welltrack-api/internal/handlers"
	"github.com/welltrack/welltrack-api/internal/middleware"
	"github.com/welltrack/welltrack-api/internal/models"
)

func registerAdminRoutes(api *gin.RouterGroup, handler *handlers.AdminHandler) {
	group := api.Group("/admin")
	group.Use(middleware.RequireRole(models.RoleAdmin))
	{
		group.POST("/reminders/sweep", handler.RunReminderSweep)
		group.POST("/maintenance/cleanup", handler.RunCleanup)
	}
}
