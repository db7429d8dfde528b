package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/database"
	"github.com/welltrack/welltrack-api/pkg/errors"
	"github.com/welltrack/welltrack-api/pkg/response"
)

// Health reports liveness and, when db is set, database reachability.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			if err := database.Ping(db); err != nil {
				unhealthy := errors.New(errors.KindInternal, "UNHEALTHY", "database unreachable")
				unhealthy.StatusCode = http.StatusServiceUnavailable
				response.Error(c, unhealthy.WithInternal(err))
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{
			"status":     "ok",
			"checked_at": time.Now().UTC(),
		})
	}
}
