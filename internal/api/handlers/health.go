package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sensor-platform/alert-engine/internal/storage"
	"gorm.io/gorm"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// GetHealth handles GET /health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"

	if h.db != nil {
		if err := storage.HealthCheck(h.db); err != nil {
			status = "degraded"
			dbStatus = err.Error()
		}
	} else {
		dbStatus = "not configured"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"database":  dbStatus,
		"timestamp": time.Now().UTC(),
	})
}

// GetAPIInfo handles GET /api/info
func (h *HealthHandler) GetAPIInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "alert-engine",
		"version": "1.0.0",
	})
}
