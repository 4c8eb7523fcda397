package handlers

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"wakeel/internal/services"
)

// TrainingHandler exposes the voice-training surface.
type TrainingHandler struct {
	trainingService *services.TrainingService
	logger          *logrus.Logger
}

func NewTrainingHandler(trainingService *services.TrainingService, logger *logrus.Logger) *TrainingHandler {
	return &TrainingHandler{
		trainingService: trainingService,
		logger:          logger,
	}
}

// TrainRequest submits voice samples for training.
type TrainRequest struct {
	UserID       string   `json:"user_id" binding:"required"`
	VoiceSamples []string `json:"voice_samples"`
}

// Train accepts a sample set and records the training outcome.
func (h *TrainingHandler) Train(c *gin.Context) {
	var req TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	result, err := h.trainingService.StartTraining(req.UserID, req.VoiceSamples)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid training request",
				Message: verr.Error(),
			})
			return
		}
		h.logger.Errorf("Failed to start training for %s: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to start training",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// UploadSample accepts one voice sample as a multipart file and
// returns it base64-encoded for the app to attach to a train request.
func (h *TrainingHandler) UploadSample(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "user_id is required",
			Message: "pass user_id as a query parameter",
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Missing file",
			Message: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Errorf("Failed to open uploaded sample: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to read sample",
			Message: err.Error(),
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Errorf("Failed to read uploaded sample: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to read sample",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Sample uploaded successfully",
		Data: gin.H{
			"audio_base64": base64.StdEncoding.EncodeToString(data),
		},
	})
}

// Status returns the user's training state.
func (h *TrainingHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.trainingService.Status(c.Param("user_id")))
}

// Voices lists the synthesis voices available to all users.
func (h *TrainingHandler) Voices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"voices": h.trainingService.Voices()})
}
