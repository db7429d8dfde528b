package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/welltrack/welltrack-api/internal/services"
	"github.com/welltrack/welltrack-api/pkg/response"
)

// MotivationHandler serves the message of the day.
type MotivationHandler struct {
	service *services.MotivationService
}

func NewMotivationHandler(service *services.MotivationService) *MotivationHandler {
	return &MotivationHandler{service: service}
}

// GET /api/motivation/today
func (h *MotivationHandler) Today(c *gin.Context) {
	dto, err := h.service.Today(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dto)
}
