package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func setupHealthHarness(t *testing.T, name string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t, name)
	handler := NewHealthHandler(db, nil, logrus.New())

	router := gin.New()
	router.GET("/health", handler.Health)
	router.GET("/ready", handler.Ready)

	return router
}

func TestHealthEndpoint(t *testing.T) {
	router := setupHealthHarness(t, "health_handler_ok")

	w := getPath(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Services["database"].Status)
}

func TestReadyEndpoint(t *testing.T) {
	router := setupHealthHarness(t, "health_handler_ready")

	w := getPath(router, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
}
