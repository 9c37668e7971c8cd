package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sensor-platform/alert-engine/internal/service"
)

// AlertHandler handles alert HTTP requests
type AlertHandler struct {
	service service.AlertService
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(service service.AlertService) *AlertHandler {
	return &AlertHandler{
		service: service,
	}
}

// GetRecentAlerts handles GET /api/alerts/recent
func (h *AlertHandler) GetRecentAlerts(c *gin.Context) {
	limit := queryLimit(c, 50)

	alerts, err := h.service.GetRecentAlerts(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetDeviceSensorAlerts handles GET /api/alerts/device/:deviceSensorID
func (h *AlertHandler) GetDeviceSensorAlerts(c *gin.Context) {
	limit := queryLimit(c, 50)

	alerts, err := h.service.GetDeviceSensorAlerts(c.Request.Context(), c.Param("deviceSensorID"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetAlertsCount handles GET /api/alerts/count
func (h *AlertHandler) GetAlertsCount(c *gin.Context) {
	count, err := h.service.GetTotalAlertsCount(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": count,
	})
}

// GetOpenAlertsCount handles GET /api/alerts/active/count
func (h *AlertHandler) GetOpenAlertsCount(c *gin.Context) {
	count, err := h.service.GetOpenAlertsCount(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": count,
	})
}

// GetSeverityCounts handles GET /api/alerts/severity/counts
func (h *AlertHandler) GetSeverityCounts(c *gin.Context) {
	counts, err := h.service.GetSeverityCounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, counts)
}

// GetDeliveries handles GET /api/alerts/:id/deliveries
func (h *AlertHandler) GetDeliveries(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	deliveries, err := h.service.GetDeliveries(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deliveries": deliveries,
		"count":      len(deliveries),
	})
}

func queryLimit(c *gin.Context, fallback int) int {
	limitStr := c.DefaultQuery("limit", strconv.Itoa(fallback))
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
