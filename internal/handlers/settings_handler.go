package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"wakeel/internal/models"
	"wakeel/internal/services"
)

// SettingsHandler exposes per-user policy CRUD.
type SettingsHandler struct {
	settingsService *services.SettingsService
	logger          *logrus.Logger
}

func NewSettingsHandler(settingsService *services.SettingsService, logger *logrus.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		logger:          logger,
	}
}

// Get returns the user's policy, falling back to defaults when nothing
// is stored yet.
func (h *SettingsHandler) Get(c *gin.Context) {
	userID := c.Param("user_id")

	policy, err := h.settingsService.Get(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorf("Failed to load settings for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to load settings",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, policy)
}

// Replace stores a full policy for the user.
func (h *SettingsHandler) Replace(c *gin.Context) {
	var policy models.UserPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}
	policy.UserID = c.Param("user_id")

	if err := h.settingsService.Replace(c.Request.Context(), &policy); err != nil {
		h.respondError(c, policy.UserID, err)
		return
	}

	c.JSON(http.StatusOK, policy)
}

// Patch updates a single whitelisted policy field.
func (h *SettingsHandler) Patch(c *gin.Context) {
	userID := c.Param("user_id")

	var patch services.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	policy, err := h.settingsService.Patch(c.Request.Context(), userID, &patch)
	if err != nil {
		h.respondError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, policy)
}

func (h *SettingsHandler) respondError(c *gin.Context, userID string, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid settings",
			Message: verr.Error(),
		})
		return
	}
	h.logger.Errorf("Failed to save settings for %s: %v", userID, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "Failed to save settings",
		Message: err.Error(),
	})
}
