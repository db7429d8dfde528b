package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/welltrack/welltrack-api/internal/services"
	"github.com/welltrack/welltrack-api/pkg/response"
)

// WellnessHandler serves the wellness logs of the signed-in user.
type WellnessHandler struct {
	wellness *services.WellnessService
}

func NewWellnessHandler(wellness *services.WellnessService) *WellnessHandler {
	return &WellnessHandler{wellness: wellness}
}

// GET /api/hydration
func (h *WellnessHandler) ListHydration(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entries, err := h.wellness.ListHydration(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entries)
}

// GET /api/hydration/:id
func (h *WellnessHandler) GetHydration(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entry, err := h.wellness.GetHydration(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entry)
}

// POST /api/hydration
func (h *WellnessHandler) CreateHydration(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.HydrationInput
	if !bindAndValidate(c, &req) {
		return
	}
	entry, err := h.wellness.CreateHydration(requestContext(c), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, entry)
}

// PUT /api/hydration/:id
func (h *WellnessHandler) UpdateHydration(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.HydrationInput
	if !bindAndValidate(c, &req) {
		return
	}
	entry, err := h.wellness.UpdateHydration(requestContext(c), userID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entry)
}

// DELETE /api/hydration/:id
func (h *WellnessHandler) DeleteHydration(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.wellness.DeleteHydration(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/steps
func (h *WellnessHandler) ListSteps(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entries, err := h.wellness.ListSteps(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entries)
}

// GET /api/steps/:id
func (h *WellnessHandler) GetSteps(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entry, err := h.wellness.GetSteps(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entry)
}

// POST /api/steps
func (h *WellnessHandler) CreateSteps(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.StepsInput
	if !bindAndValidate(c, &req) {
		return
	}
	entry, err := h.wellness.CreateSteps(requestContext(c), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, entry)
}

// PUT /api/steps/:id
func (h *WellnessHandler) UpdateSteps(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.StepsInput
	if !bindAndValidate(c, &req) {
		return
	}
	entry, err := h.wellness.UpdateSteps(requestContext(c), userID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entry)
}

// DELETE /api/steps/:id
func (h *WellnessHandler) DeleteSteps(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.wellness.DeleteSteps(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/sleep
func (h *WellnessHandler) ListSleep(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entries, err := h.wellness.ListSleep(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entries)
}

// GET /api/sleep/:id
func (h *WellnessHandler) GetSleep(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entry, err := h.wellness.GetSleep(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entry)
}

// POST /api/sleep
func (h *WellnessHandler) CreateSleep(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.SleepInput
	if !bindAndValidate(c, &req) {
		return
	}
	entry, err := h.wellness.CreateSleep(requestContext(c), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, entry)
}

// PUT /api/sleep/:id
func (h *WellnessHandler) UpdateSleep(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.SleepInput
	if !bindAndValidate(c, &req) {
		return
	}
	entry, err := h.wellness.UpdateSleep(requestContext(c), userID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entry)
}

// DELETE /api/sleep/:id
func (h *WellnessHandler) DeleteSleep(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.wellness.DeleteSleep(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/mood
func (h *WellnessHandler) ListMood(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entries, err := h.wellness.ListMood(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entries)
}

// GET /api/mood/:id
func (h *WellnessHandler) GetMood(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entry, err := h.wellness.GetMood(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entry)
}

// POST /api/mood
func (h *WellnessHandler) CreateMood(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.MoodInput
	if !bindAndValidate(c, &req) {
		return
	}
	entry, err := h.wellness.CreateMood(requestContext(c), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, entry)
}

// PUT /api/mood/:id
func (h *WellnessHandler) UpdateMood(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.MoodInput
	if !bindAndValidate(c, &req) {
		return
	}
	entry, err := h.wellness.UpdateMood(requestContext(c), userID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entry)
}

// DELETE /api/mood/:id
func (h *WellnessHandler) DeleteMood(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.wellness.DeleteMood(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
