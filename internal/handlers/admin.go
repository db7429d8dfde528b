package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/welltrack/welltrack-api/internal/app/maintenance"
	"github.com/welltrack/welltrack-api/internal/app/reminders"
	"github.com/welltrack/welltrack-api/pkg/errors"
	"github.com/welltrack/welltrack-api/pkg/response"
)

// AdminHandler triggers background jobs on demand. Routes are restricted to the Admin role.
type AdminHandler struct {
	sweeper *reminders.Sweeper
	cleaner *maintenance.Cleaner
}

func NewAdminHandler(sweeper *reminders.Sweeper, cleaner *maintenance.Cleaner) *AdminHandler {
	return &AdminHandler{sweeper: sweeper, cleaner: cleaner}
}

// POST /api/admin/reminders/sweep
func (h *AdminHandler) RunReminderSweep(c *gin.Context) {
	if h.sweeper == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	stats, err := h.sweeper.Sweep(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// POST /api/admin/maintenance/cleanup
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	if h.cleaner == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	stats, err := h.cleaner.Run(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}
