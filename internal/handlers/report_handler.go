package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"wakeel/internal/services"
)

const defaultStatsDays = 30

// ReportHandler exposes daily/weekly reports and usage statistics.
type ReportHandler struct {
	reportService *services.ReportService
	logger        *logrus.Logger
}

func NewReportHandler(reportService *services.ReportService, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// Daily returns the report for one calendar day, defaulting to today.
func (h *ReportHandler) Daily(c *gin.Context) {
	userID := c.Param("user_id")

	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid date",
			Message: "date must be YYYY-MM-DD",
		})
		return
	}

	report, err := h.reportService.Daily(c.Request.Context(), userID, date)
	if err != nil {
		h.logger.Errorf("Failed to build daily report for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to build report",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// Weekly returns the seven-day report ending today.
func (h *ReportHandler) Weekly(c *gin.Context) {
	userID := c.Param("user_id")

	report, err := h.reportService.Weekly(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorf("Failed to build weekly report for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to build report",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// Stats returns usage statistics over a trailing window of days.
func (h *ReportHandler) Stats(c *gin.Context) {
	userID := c.Param("user_id")

	days := defaultStatsDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid days",
				Message: "days must be a positive integer",
			})
			return
		}
		days = n
	}

	stats, err := h.reportService.Stats(c.Request.Context(), userID, days)
	if err != nil {
		h.logger.Errorf("Failed to build usage stats for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to build stats",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
