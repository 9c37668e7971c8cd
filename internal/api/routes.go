package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sensor-platform/alert-engine/internal/api/handlers"
	"github.com/sensor-platform/alert-engine/internal/app"
	"github.com/sensor-platform/alert-engine/internal/health"
)

// RegisterRoutes registers all application routes using dependencies container
func RegisterRoutes(deps *app.Dependencies, router *gin.Engine) {
	// Health routes (no authentication required)
	health.RegisterHealthRoutes(router, deps.DB)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ruleHandler := handlers.NewRuleHandler(deps.RuleService)
	alertHandler := handlers.NewAlertHandler(deps.AlertService)
	readingHandler := handlers.NewReadingHandler(deps.Engine)

	apiV1 := router.Group("/api")
	{
		ruleGroup := apiV1.Group("/rules")
		{
			ruleGroup.POST("", ruleHandler.CreateRule)
			ruleGroup.POST("/from-template", ruleHandler.CreateFromTemplate)
			ruleGroup.GET("", ruleHandler.ListRules)
			ruleGroup.GET("/:id", ruleHandler.GetRule)
			ruleGroup.PUT("/:id", ruleHandler.UpdateRule)
			ruleGroup.DELETE("/:id", ruleHandler.DeleteRule)
			ruleGroup.POST("/:id/enable", ruleHandler.SetEnabled(true))
			ruleGroup.POST("/:id/disable", ruleHandler.SetEnabled(false))
		}

		apiV1.GET("/rule-templates", ruleHandler.ListTemplates)

		alertGroup := apiV1.Group("/alerts")
		{
			alertGroup.GET("/recent", alertHandler.GetRecentAlerts)
			alertGroup.GET("/count", alertHandler.GetAlertsCount)
			alertGroup.GET("/open/count", alertHandler.GetOpenAlertsCount)
			alertGroup.GET("/severity/counts", alertHandler.GetSeverityCounts)
			alertGroup.GET("/device-sensor/:deviceSensorID", alertHandler.GetDeviceSensorAlerts)
			alertGroup.GET("/:id/deliveries", alertHandler.GetDeliveries)
		}

		apiV1.POST("/readings", readingHandler.IngestReadings)
		apiV1.POST("/sensor-data", readingHandler.IngestDeviceData)
	}

	// WebSocket route
	handlers.RegisterWebSocketRoutes(router, deps.WSHub)
}
