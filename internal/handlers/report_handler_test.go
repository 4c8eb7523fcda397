package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"wakeel/internal/models"
	"wakeel/internal/services"
)

func setupReportHarness(t *testing.T, name string) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t, name)
	logger := logrus.New()
	handler := NewReportHandler(services.NewReportService(db, logger), logger)

	router := gin.New()
	router.GET("/api/v1/reports/daily/:user_id", handler.Daily)
	router.GET("/api/v1/reports/weekly/:user_id", handler.Weekly)
	router.GET("/api/v1/reports/stats/:user_id", handler.Stats)

	return router, db
}

func TestDailyReportEndpoint(t *testing.T) {
	router, db := setupReportHarness(t, "report_handler_daily")

	now := time.Now()
	session := &models.CallSession{
		ID:              "call_r1",
		UserID:          "user-1",
		CallerPhone:     "+201001234567",
		Status:          models.CallStatusCompleted,
		StartTime:       now,
		DurationSeconds: 120,
	}
	assert.NoError(t, db.Create(session).Error)

	w := getPath(router, "/api/v1/reports/daily/user-1?date="+now.Format("2006-01-02"))
	assert.Equal(t, http.StatusOK, w.Code)

	var report services.DailyReport
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Stats.TotalCalls)
	assert.Equal(t, 2, report.Stats.TotalDurationMinutes)
}

func TestDailyReportEmptyDay(t *testing.T) {
	router, _ := setupReportHarness(t, "report_handler_empty")

	w := getPath(router, "/api/v1/reports/daily/user-1?date=2026-01-15")
	assert.Equal(t, http.StatusOK, w.Code)

	var report services.DailyReport
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 0, report.Stats.TotalCalls)
	assert.Contains(t, report.Insights, "no calls today")
}

func TestDailyReportInvalidDate(t *testing.T) {
	router, _ := setupReportHarness(t, "report_handler_baddate")

	w := getPath(router, "/api/v1/reports/daily/user-1?date=15-01-2026")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWeeklyReportEndpoint(t *testing.T) {
	router, _ := setupReportHarness(t, "report_handler_weekly")

	w := getPath(router, "/api/v1/reports/weekly/user-1")
	assert.Equal(t, http.StatusOK, w.Code)

	var report services.WeeklyReport
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Len(t, report.DailyReports, 7)
}

func TestStatsEndpoint(t *testing.T) {
	router, db := setupReportHarness(t, "report_handler_stats")

	session := &models.CallSession{
		ID:              "call_s1",
		UserID:          "user-1",
		CallerPhone:     "+201001234567",
		Status:          models.CallStatusCompleted,
		StartTime:       time.Now(),
		DurationSeconds: 60,
	}
	assert.NoError(t, db.Create(session).Error)

	w := getPath(router, "/api/v1/reports/stats/user-1?days=7")
	assert.Equal(t, http.StatusOK, w.Code)

	var stats services.UsageStats
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalCalls)

	w = getPath(router, "/api/v1/reports/stats/user-1?days=zero")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
