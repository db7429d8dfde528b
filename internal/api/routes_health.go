package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, db *gorm.DB) {
	health := handlers.Health(db)
	live := handlers.Health(nil)

	r.GET("/health", health)
	r.GET("/health/live", live)
	r.GET("/api/health", health)
}
