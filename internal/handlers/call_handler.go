package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"wakeel/internal/services"
)

// CallHandler exposes the inbound-call surface.
type CallHandler struct {
	callService *services.CallService
	logger      *logrus.Logger
}

func NewCallHandler(callService *services.CallService, logger *logrus.Logger) *CallHandler {
	return &CallHandler{
		callService: callService,
		logger:      logger,
	}
}

// HandleIncoming answers one inbound call. A policy denial is a 403
// with the rejection reason; transcription and synthesis failures are
// 500s because the caller heard nothing.
func (h *CallHandler) HandleIncoming(c *gin.Context) {
	var req services.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.callService.HandleIncoming(c.Request.Context(), &req)
	if err != nil {
		var rejection *services.PolicyRejectionError
		if errors.As(err, &rejection) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "call rejected",
				"reason":  string(rejection.Reason),
				"message": rejection.Error(),
			})
			return
		}
		h.logger.Errorf("Failed to handle incoming call: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to handle call",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// EndCallRequest closes an answered call.
type EndCallRequest struct {
	CallID          string `json:"call_id" binding:"required"`
	UserID          string `json:"user_id" binding:"required"`
	DurationSeconds int    `json:"duration_seconds"`
}

// EndCall marks the call completed and schedules summarization.
func (h *CallHandler) EndCall(c *gin.Context) {
	var req EndCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	err := h.callService.EndCall(c.Request.Context(), req.CallID, req.UserID, req.DurationSeconds)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCallNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "Call not found",
				Message: err.Error(),
			})
		case errors.Is(err, services.ErrInvalidTransition):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "Call already ended",
				Message: err.Error(),
			})
		default:
			h.logger.Errorf("Failed to end call %s: %v", req.CallID, err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "Failed to end call",
				Message: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "call ended"})
}

// GetSummary returns the stored summary for one call.
func (h *CallHandler) GetSummary(c *gin.Context) {
	callID := c.Param("call_id")

	summary, err := h.callService.Summary(c.Request.Context(), callID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCallNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "Call not found",
				Message: err.Error(),
			})
		case errors.Is(err, services.ErrSummaryNotReady):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "Summary not ready",
				Message: err.Error(),
			})
		default:
			h.logger.Errorf("Failed to load summary for %s: %v", callID, err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "Failed to load summary",
				Message: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetHistory lists the user's call sessions, newest first.
func (h *CallHandler) GetHistory(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "user_id is required",
			Message: "pass user_id as a query parameter",
		})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid limit",
				Message: "limit must be a non-negative integer",
			})
			return
		}
		limit = n
	}

	sessions, err := h.callService.History(c.Request.Context(), userID, limit, c.Query("date_from"))
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid query",
				Message: verr.Error(),
			})
			return
		}
		h.logger.Errorf("Failed to load call history for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to load history",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"calls": sessions,
		"count": len(sessions),
	})
}
