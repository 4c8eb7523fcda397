package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"wakeel/internal/services"
)

// MessageHandler exposes the inbound-message surface.
type MessageHandler struct {
	messageService *services.MessageService
	logger         *logrus.Logger
}

func NewMessageHandler(messageService *services.MessageService, logger *logrus.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		logger:         logger,
	}
}

// Handle answers one inbound text or voice message.
func (h *MessageHandler) Handle(c *gin.Context) {
	var req services.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.messageService.Handle(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrTranscriptionFailed) {
			h.logger.Errorf("Failed to transcribe message audio: %v", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "Failed to transcribe audio",
				Message: err.Error(),
			})
			return
		}
		h.logger.Errorf("Failed to handle message: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to handle message",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
