package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wakeel/internal/services"
)

const serviceVersion = "1.0.0"

var startTime = time.Now()

// HealthHandler reports service liveness and readiness.
type HealthHandler struct {
	db     *gorm.DB
	events *services.EventHub
	logger *logrus.Logger
}

func NewHealthHandler(db *gorm.DB, events *services.EventHub, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		events: events,
		logger: logger,
	}
}

// ServiceInfo is one dependency's health in the report.
type ServiceInfo struct {
	Status  string      `json:"status"`
	Latency string      `json:"latency,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// HealthResponse is the full health report.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	GoVersion string                 `json:"go_version"`
	Services  map[string]ServiceInfo `json:"services"`
}

// Health reports overall service health. A failing database degrades
// the status but still answers 200; the process itself is alive.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Version:   serviceVersion,
		Timestamp: time.Now(),
		Uptime:    time.Since(startTime).String(),
		GoVersion: runtime.Version(),
		Services:  make(map[string]ServiceInfo),
	}

	if err := h.pingDatabase(ctx, &response); err != nil {
		response.Status = "degraded"
	}

	if h.events != nil {
		response.Services["events"] = ServiceInfo{
			Status: "healthy",
			Details: map[string]interface{}{
				"connected_clients": h.events.ClientCount(),
			},
		}
	}

	c.JSON(http.StatusOK, response)
}

// Ready answers 200 only when the database is reachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "ready",
		Version:   serviceVersion,
		Timestamp: time.Now(),
		Services:  make(map[string]ServiceInfo),
	}

	statusCode := http.StatusOK
	if err := h.pingDatabase(ctx, &response); err != nil {
		response.Status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

func (h *HealthHandler) pingDatabase(ctx context.Context, response *HealthResponse) error {
	start := time.Now()

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}

	info := ServiceInfo{Latency: time.Since(start).String()}
	if err != nil {
		h.logger.Errorf("Database health check failed: %v", err)
		info.Status = "unhealthy"
		info.Error = err.Error()
	} else {
		info.Status = "healthy"
	}
	response.Services["database"] = info

	return err
}
